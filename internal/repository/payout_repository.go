package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// PayoutRepository persists computed payouts and their itemized lines.
type PayoutRepository struct {
	db *sqlx.DB
}

// NewPayoutRepository constructs the repository.
func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// SavePayout writes one payout header and its lines inside the caller's transaction: a CURRENT
// line for a non-zero net payment and one RETROACTIVE_ADD/DEDUCT line per retro detail. When the
// result only carries an aggregate retro total, a single collapsed adjustment line is written.
func (r *PayoutRepository) SavePayout(ctx context.Context, tx *sqlx.Tx, periodID int64, citizenID string, result *models.PayoutResult, masterRateID *int64, rateSnapshot decimal.Decimal, refYear, refMonth int) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("save payout: nil transaction provided")
	}
	retro := result.RetroactiveTotal
	payout := models.Payout{
		ID:                uuid.NewString(),
		PeriodID:          periodID,
		CitizenID:         citizenID,
		MasterRateID:      masterRateID,
		RateSnapshot:      rateSnapshot,
		EligibleDays:      result.EligibleDays,
		DeductedDays:      result.TotalDeductionDays,
		ValidLicenseDays:  result.ValidLicenseDays,
		CalculatedAmount:  result.NetPayment,
		RetroactiveAmount: retro,
		TotalPayable:      result.NetPayment.Add(retro),
		Remark:            result.Remark,
		CreatedAt:         time.Now().UTC(),
	}

	const headerQuery = `INSERT INTO payouts
	(id, period_id, citizen_id, master_rate_id, rate_snapshot, eligible_days, deducted_days, valid_license_days,
	 calculated_amount, retroactive_amount, total_payable, remark, created_at)
	VALUES (:id, :period_id, :citizen_id, :master_rate_id, :rate_snapshot, :eligible_days, :deducted_days, :valid_license_days,
	 :calculated_amount, :retroactive_amount, :total_payable, :remark, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, headerQuery, &payout); err != nil {
		return "", fmt.Errorf("insert payout: %w", err)
	}

	items := make([]models.PayoutItem, 0, len(result.RetroDetails)+1)
	if !result.NetPayment.IsZero() {
		items = append(items, models.PayoutItem{
			ItemType:       models.PayoutItemCurrent,
			ReferenceYear:  refYear,
			ReferenceMonth: refMonth,
			Amount:         result.NetPayment,
			Description:    fmt.Sprintf("PTS %04d-%02d", refYear, refMonth),
		})
	}
	for _, detail := range result.RetroDetails {
		items = append(items, models.PayoutItem{
			ItemType:       retroItemType(detail.Diff),
			ReferenceYear:  detail.Year,
			ReferenceMonth: detail.Month,
			Amount:         detail.Diff.Abs(),
			Description:    detail.Remark,
		})
	}
	if len(result.RetroDetails) == 0 && !retro.IsZero() {
		items = append(items, models.PayoutItem{
			ItemType:       retroItemType(retro),
			ReferenceYear:  refYear,
			ReferenceMonth: refMonth,
			Amount:         retro.Abs(),
			Description:    "retroactive adjustment",
		})
	}

	const itemQuery = `INSERT INTO payout_items (id, payout_id, item_type, reference_year, reference_month, amount, description)
	VALUES (:id, :payout_id, :item_type, :reference_year, :reference_month, :amount, :description)`
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].PayoutID = payout.ID
		if _, err := sqlx.NamedExecContext(ctx, tx, itemQuery, &items[i]); err != nil {
			return "", fmt.Errorf("insert payout item: %w", err)
		}
	}
	return payout.ID, nil
}

func retroItemType(diff decimal.Decimal) models.PayoutItemType {
	if diff.IsNegative() {
		return models.PayoutItemRetroactiveDeduct
	}
	return models.PayoutItemRetroactiveAdd
}

// DeleteForCitizen removes the employee's payout (and, by cascade, its lines) from a period.
func (r *PayoutRepository) DeleteForCitizen(ctx context.Context, tx *sqlx.Tx, periodID int64, citizenID string) error {
	if _, err := extOr(r.db, tx).ExecContext(ctx, `DELETE FROM payouts WHERE period_id = $1 AND citizen_id = $2`, periodID, citizenID); err != nil {
		return fmt.Errorf("delete payout: %w", err)
	}
	return nil
}

// FindCalculatedAmount returns the amount originally computed for the employee in a period.
// ok is false when no payout exists.
func (r *PayoutRepository) FindCalculatedAmount(ctx context.Context, periodID int64, citizenID string) (amount decimal.Decimal, ok bool, err error) {
	const query = `SELECT calculated_amount FROM payouts WHERE period_id = $1 AND citizen_id = $2`
	if err := r.db.GetContext(ctx, &amount, query, periodID, citizenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("find payout amount: %w", err)
	}
	return amount, true, nil
}

// SumRetroAdjustments nets previously recorded retro lines (ADD minus DEDUCT) that reference the
// given month for the employee. Lines belonging to excludePeriodID are ignored so a re-run of
// the current period does not count its own earlier output.
func (r *PayoutRepository) SumRetroAdjustments(ctx context.Context, citizenID string, refYear, refMonth int, excludePeriodID int64) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(CASE WHEN i.item_type = $4 THEN i.amount ELSE -i.amount END), 0)
FROM payout_items i JOIN payouts p ON p.id = i.payout_id
WHERE p.citizen_id = $1 AND i.reference_year = $2 AND i.reference_month = $3
  AND i.item_type IN ($4, $5) AND p.period_id <> $6`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, citizenID, refYear, refMonth,
		models.PayoutItemRetroactiveAdd, models.PayoutItemRetroactiveDeduct, excludePeriodID); err != nil {
		return decimal.Zero, fmt.Errorf("sum retro adjustments: %w", err)
	}
	return total, nil
}

// ListByPeriod returns the period's payouts with employee names.
func (r *PayoutRepository) ListByPeriod(ctx context.Context, periodID int64) ([]models.PayoutSummary, error) {
	const query = `SELECT p.id, p.period_id, p.citizen_id, p.master_rate_id, p.rate_snapshot, p.eligible_days, p.deducted_days,
       p.valid_license_days, p.calculated_amount, p.retroactive_amount, p.total_payable, p.remark, p.created_at,
       COALESCE(e.full_name, '') AS full_name
FROM payouts p LEFT JOIN employees e ON e.citizen_id = p.citizen_id
WHERE p.period_id = $1 ORDER BY p.citizen_id ASC`
	var payouts []models.PayoutSummary
	if err := r.db.SelectContext(ctx, &payouts, query, periodID); err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, nil
}

// ListItems returns the lines of a payout.
func (r *PayoutRepository) ListItems(ctx context.Context, payoutID string) ([]models.PayoutItem, error) {
	const query = `SELECT id, payout_id, item_type, reference_year, reference_month, amount, description
FROM payout_items WHERE payout_id = $1 ORDER BY reference_year ASC, reference_month ASC, item_type ASC`
	var items []models.PayoutItem
	if err := r.db.SelectContext(ctx, &items, query, payoutID); err != nil {
		return nil, fmt.Errorf("list payout items: %w", err)
	}
	return items, nil
}

// PeriodTotals sums total payable and counts payouts for a period.
func (r *PayoutRepository) PeriodTotals(ctx context.Context, periodID int64) (decimal.Decimal, int, error) {
	var row struct {
		Total decimal.Decimal `db:"total"`
		Count int             `db:"headcount"`
	}
	const query = `SELECT COALESCE(SUM(total_payable), 0) AS total, COUNT(*) AS headcount FROM payouts WHERE period_id = $1`
	if err := r.db.GetContext(ctx, &row, query, periodID); err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum payouts: %w", err)
	}
	return row.Total, row.Count, nil
}
