package payroll

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// exemptKeywords lists professions whose license is treated as valid for life.
var exemptKeywords = []string{
	"แพทย์",
	"ทันตแพทย์",
	"เภสัชกร",
	"พยาบาลวิชาชีพ",
	"นักกายภาพบำบัด",
	"นักเทคนิคการแพทย์",
	"นักรังสีการแพทย์",
	"นักกิจกรรมบำบัด",
	"นักจิตวิทยาคลินิก",
	"physician",
	"dentist",
	"pharmacist",
}

const openEnded = "9999-12-31"

func normalizeText(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

// IsExempt reports whether text names a profession on the exemption list.
func IsExempt(text string) bool {
	normalized := normalizeText(text)
	if normalized == "" {
		return false
	}
	for _, keyword := range exemptKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// HasValidLicense decides whether the employee is licensed on dateStr ("YYYY-MM-DD").
// Exempt positions and exempt license texts always qualify; otherwise an ACTIVE license whose
// validity range contains dateStr is required. Dates compare as strings.
func HasValidLicense(licenses []models.LicenseRecord, dateStr, positionName string) bool {
	if IsExempt(positionName) {
		return true
	}
	for _, lic := range licenses {
		if IsExempt(lic.LicenseName + " " + lic.LicenseType + " " + lic.OccupationName) {
			return true
		}
	}
	for _, lic := range licenses {
		if !strings.EqualFold(strings.TrimSpace(lic.Status), "ACTIVE") {
			continue
		}
		from := ""
		if lic.ValidFrom != nil {
			from = DateKey(*lic.ValidFrom)
		}
		until := openEnded
		if lic.ValidUntil != nil {
			until = DateKey(*lic.ValidUntil)
		}
		if from <= dateStr && dateStr <= until {
			return true
		}
	}
	return false
}
