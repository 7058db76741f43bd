package payroll

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

func TestHasValidLicense(t *testing.T) {
	from := day(2023, 1, 1)
	until := day(2024, 1, 15)

	cases := []struct {
		name     string
		licenses []models.LicenseRecord
		date     string
		position string
		want     bool
	}{
		{name: "exempt position", date: "2024-01-20", position: "พยาบาลวิชาชีพชำนาญการ", want: true},
		{name: "exempt position case insensitive", date: "2024-01-20", position: "Senior PHYSICIAN", want: true},
		{name: "exempt license text", date: "2024-01-20", position: "นักวิชาการสาธารณสุข",
			licenses: []models.LicenseRecord{{OccupationName: "เภสัชกร", Status: "EXPIRED"}}, want: true},
		{name: "active within range", date: "2024-01-15", position: "technician",
			licenses: []models.LicenseRecord{{Status: "active", ValidFrom: &from, ValidUntil: &until}}, want: true},
		{name: "active after expiry", date: "2024-01-16", position: "technician",
			licenses: []models.LicenseRecord{{Status: "ACTIVE", ValidFrom: &from, ValidUntil: &until}}, want: false},
		{name: "suspended license", date: "2023-06-01", position: "technician",
			licenses: []models.LicenseRecord{{Status: "SUSPENDED", ValidFrom: &from, ValidUntil: &until}}, want: false},
		{name: "open ended", date: "2030-01-01", position: "technician",
			licenses: []models.LicenseRecord{{Status: "ACTIVE", ValidFrom: &from}}, want: true},
		{name: "no records", date: "2024-01-01", position: "technician", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, HasValidLicense(tc.licenses, tc.date, tc.position))
		})
	}
}
