package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

func window(id int64, rate int64, effective time.Time, expiry *time.Time) models.EligibilityWindow {
	return models.EligibilityWindow{
		ID:            id,
		MasterRateID:  id * 10,
		Rate:          decimal.NewFromInt(rate),
		EffectiveDate: effective,
		ExpiryDate:    expiry,
	}
}

func TestCalculateMonth(t *testing.T) {
	open := []models.EligibilityWindow{window(1, 3000, day(2024, 1, 1), nil)}
	nurse := "พยาบาลวิชาชีพ"

	cases := []struct {
		name       string
		in         MonthlyInput
		net        string
		eligible   float64
		licensed   int
		deductions float64
		remark     string
		warnings   int
	}{
		{
			name:     "no license",
			in:       MonthlyInput{Year: 2024, Month: 1, Windows: open, PositionName: "นักวิชาการเงินและบัญชี"},
			net:      "0.00",
			eligible: 0,
			licensed: 0,
		},
		{
			name:     "exempt position full month",
			in:       MonthlyInput{Year: 2024, Month: 1, Windows: open, PositionName: nurse},
			net:      "3000.00",
			eligible: 31,
			licensed: 31,
		},
		{
			name: "sick leave over quota",
			in: MonthlyInput{
				Year: 2024, Month: 1, Windows: open, PositionName: nurse,
				Leaves: []models.LeaveRecord{leave("sick", day(2024, 1, 10), day(2024, 1, 11), 2)},
				Quota:  quotaOf(nil, nil, f(0)),
			},
			net:        "2806.45",
			eligible:   29,
			licensed:   31,
			deductions: 2,
		},
		{
			name: "resigned mid month",
			in: MonthlyInput{
				Year: 2024, Month: 1, Windows: open, PositionName: nurse,
				Movements: []models.EmploymentMovement{move(models.MovementResign, day(2024, 1, 16))},
			},
			net:      "1451.61",
			eligible: 15,
			licensed: 15,
		},
		{
			name: "window starts mid month",
			in: MonthlyInput{
				Year: 2024, Month: 1, PositionName: nurse,
				Windows: []models.EligibilityWindow{window(1, 3000, day(2024, 1, 11), nil)},
			},
			net:      "2032.26",
			eligible: 21,
			licensed: 21,
		},
		{
			name: "overlapping windows prefer the latest",
			in: MonthlyInput{
				Year: 2024, Month: 1, PositionName: nurse,
				Windows: []models.EligibilityWindow{
					window(1, 3000, day(2023, 1, 1), nil),
					window(2, 5000, day(2024, 1, 16), nil),
				},
			},
			net:      "4032.26",
			eligible: 31,
			licensed: 31,
			warnings: 1,
		},
		{
			name: "licensed part of the month",
			in: MonthlyInput{
				Year: 2024, Month: 1, Windows: open, PositionName: "technician",
				Licenses: []models.LicenseRecord{{Status: "ACTIVE", ValidFrom: ptr(day(2020, 1, 1)), ValidUntil: ptr(day(2024, 1, 10))}},
			},
			net:      "967.74",
			eligible: 10,
			licensed: 10,
		},
		{
			name: "study leave",
			in: MonthlyInput{
				Year: 2024, Month: 1, Windows: open, PositionName: nurse,
				Movements: []models.EmploymentMovement{move(models.MovementStudy, day(2023, 8, 1))},
			},
			net:    "0.00",
			remark: "on study leave since 2023-08-01",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateMonth(tc.in)
			require.Equal(t, tc.net, got.NetPayment.StringFixed(2))
			require.Equal(t, tc.eligible, got.EligibleDays)
			require.Equal(t, tc.licensed, got.ValidLicenseDays)
			require.Equal(t, tc.deductions, got.TotalDeductionDays)
			require.Equal(t, tc.remark, got.Remark)
			require.Len(t, got.Warnings, tc.warnings)
		})
	}
}

func TestCalculateMonthSnapshotAndIdempotence(t *testing.T) {
	in := MonthlyInput{
		Year: 2024, Month: 2, PositionName: "dentist",
		Windows: []models.EligibilityWindow{
			window(1, 1000, day(2023, 1, 1), ptr(day(2024, 2, 14))),
			window(2, 1500, day(2024, 2, 15), nil),
		},
		Holidays: []time.Time{day(2024, 2, 26)},
	}

	first := CalculateMonth(in)
	second := CalculateMonth(in)
	require.Equal(t, first, second)
	require.Empty(t, first.Warnings)
	require.NotNil(t, first.MasterRateID)
	require.Equal(t, int64(20), *first.MasterRateID)
	require.Equal(t, "1500", first.RateSnapshot.String())
	// 14 days at 1000 and 15 days at 1500 over 29 days.
	require.Equal(t, "1258.62", first.NetPayment.StringFixed(2))
}

func TestCorrection(t *testing.T) {
	diff, ok := Correction(decimal.RequireFromString("3000.00"), decimal.RequireFromString("2999.995"))
	require.False(t, ok)
	require.True(t, diff.IsZero())

	diff, ok = Correction(decimal.RequireFromString("1500.50"), decimal.RequireFromString("3000"))
	require.True(t, ok)
	require.Equal(t, "-1499.50", diff.StringFixed(2))
}

func TestLookBack(t *testing.T) {
	require.Equal(t, []MonthRef{{2024, 1}, {2023, 12}, {2023, 11}}, LookBack(2024, 2, 3))
	require.Empty(t, LookBack(2024, 2, 0))
}

func ptr(t time.Time) *time.Time { return &t }
