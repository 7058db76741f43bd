package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer issues and verifies expiring download tokens for stored files.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token of the form <b64 name>.<unix expiry>.<hex hmac>.
func (s *Signer) Sign(name string) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, fmt.Errorf("name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(name))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{encoded, exp, s.mac(encoded, exp)}, "."), expiresAt, nil
}

// Verify validates the token signature and expiry and returns the stored name.
func (s *Signer) Verify(token string) (string, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, fmt.Errorf("invalid token format")
	}
	encoded, exp, signature := parts[0], parts[1], parts[2]
	if !hmac.Equal([]byte(s.mac(encoded, exp)), []byte(signature)) {
		return "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token expiry")
	}
	expiresAt := time.Unix(unix, 0)
	if s.now().After(expiresAt) {
		return "", time.Time{}, fmt.Errorf("token expired")
	}
	name, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("decode token name: %w", err)
	}
	return string(name), expiresAt, nil
}

func (s *Signer) mac(encoded, exp string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(encoded + "|" + exp))
	return hex.EncodeToString(m.Sum(nil))
}
