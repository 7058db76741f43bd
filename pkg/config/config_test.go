package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, 543, cfg.Payroll.FiscalYearOffset)
	require.Equal(t, 6, cfg.Payroll.RetroLookBackMonths)
	require.Equal(t, 30*time.Minute, cfg.Payroll.RunLockTTL)
	require.Equal(t, 3, cfg.Workflow.SLABusinessDays)
	require.Equal(t, 15*time.Minute, cfg.Sync.LockTTL)
	require.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PAYROLL_RETRO_LOOKBACK_MONTHS", 0)
	v.Set("HR_SYNC_LOCK_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := fromViper(v)
	require.Equal(t, 6, cfg.Payroll.RetroLookBackMonths)
	require.Equal(t, 15*time.Minute, cfg.Sync.LockTTL)
	require.Equal(t, time.Duration(0), parseDuration("", 0))
	require.Equal(t, 15*time.Minute, parseDuration("bogus", 15*time.Minute))
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
