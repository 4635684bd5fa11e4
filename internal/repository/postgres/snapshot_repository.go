package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/recommend"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository"
)

// Sales history lives in sales_lines(order_id, customer_id, sku, quantity,
// amount, sold_at); stock levels in inventory_levels(sku, name,
// quantity_on_hand, min_quantity, average_daily_sales, lead_time_days,
// unit_cost, as_of).
const (
	// Every period from the window start through the one containing $2 gets a
	// row; periods without sales are 0 so the series stays evenly spaced.
	revenueQuery = `
		WITH filtered AS (
			SELECT sold_at, amount
			FROM sales_lines
			WHERE sold_at < $2
			  AND ($3::timestamptz IS NULL OR sold_at >= $3)
		),
		bounds AS (
			SELECT
				date_trunc($1, COALESCE($3::timestamptz, MIN(sold_at))) AS first_period,
				date_trunc($1, $2::timestamptz - interval '1 microsecond') AS last_period
			FROM filtered
			HAVING COUNT(*) > 0
		),
		periods AS (
			SELECT generate_series(first_period, last_period, $4::interval) AS period
			FROM bounds
		)
		SELECT
			p.period,
			COALESCE(SUM(f.amount), 0) AS value
		FROM periods p
		LEFT JOIN filtered f ON date_trunc($1, f.sold_at) = p.period
		GROUP BY p.period
		ORDER BY p.period
	`

	customerFeaturesQuery = `
		SELECT
			customer_id AS id,
			EXTRACT(EPOCH FROM ($1::timestamptz - MAX(sold_at))) / 86400 AS recency,
			COUNT(DISTINCT order_id) AS frequency,
			COALESCE(SUM(amount), 0) AS monetary
		FROM sales_lines
		WHERE sold_at < $1
		  AND ($2::timestamptz IS NULL OR sold_at >= $2)
		  AND customer_id <> ''
		GROUP BY customer_id
		ORDER BY customer_id
	`

	interactionsQuery = `
		SELECT
			customer_id AS entity_id,
			sku AS item_id,
			SUM(quantity) AS quantity
		FROM sales_lines
		WHERE sold_at < $1
		  AND ($2::timestamptz IS NULL OR sold_at >= $2)
		  AND customer_id <> ''
		GROUP BY customer_id, sku
		ORDER BY customer_id, sku
	`

	// value is annual consumption value, the usual ABC basis.
	inventoryQuery = `
		SELECT DISTINCT ON (sku)
			sku AS id,
			COALESCE(name, '') AS name,
			GREATEST(quantity_on_hand, 0) AS quantity_on_hand,
			GREATEST(COALESCE(min_quantity, 0), 0) AS min_quantity,
			GREATEST(COALESCE(average_daily_sales, 0), 0) AS average_daily_sales,
			GREATEST(COALESCE(lead_time_days, 0), 0) AS lead_time_days,
			GREATEST(COALESCE(average_daily_sales, 0) * 365 * COALESCE(unit_cost, 0), 0) AS value
		FROM inventory_levels
		WHERE as_of < $1
		ORDER BY sku, as_of DESC
	`

	availablePeriodsQuery = `
		SELECT DISTINCT date_trunc($1, sold_at) AS period
		FROM sales_lines
		ORDER BY period DESC
		LIMIT $2
	`
)

type customerFeatures struct {
	ID        string  `db:"id"`
	Recency   float64 `db:"recency"`
	Frequency float64 `db:"frequency"`
	Monetary  float64 `db:"monetary"`
}

type snapshotRepository struct {
	db  *DB
	now func() time.Time
}

func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db, now: time.Now}
}

// LoadSnapshot reads all four tables inside one read-only REPEATABLE READ
// transaction.
func (r *snapshotRepository) LoadSnapshot(ctx context.Context, filter repository.SnapshotFilter) (*domain.Snapshot, error) {
	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = r.now()
	}
	asOf = asOf.UTC()

	granularity := truncUnit(filter.Granularity)
	step := periodStep(granularity)
	since := nullTime(filter.Since)

	snap := &domain.Snapshot{
		Label:   asOf.Format("2006-01-02"),
		TakenAt: asOf,
	}

	err := r.db.WithSnapshotTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &snap.Revenue, revenueQuery, granularity, asOf, since, step); err != nil {
			return fmt.Errorf("error loading revenue series: %w", err)
		}

		var rows []customerFeatures
		if err := tx.SelectContext(ctx, &rows, customerFeaturesQuery, asOf, since); err != nil {
			return fmt.Errorf("error loading customer features: %w", err)
		}
		snap.Customers = make([]domain.EntityFeatureVector, len(rows))
		for i, row := range rows {
			snap.Customers[i] = domain.EntityFeatureVector{
				ID:       row.ID,
				Features: []float64{row.Recency, row.Frequency, row.Monetary},
			}
		}

		var lines []domain.Interaction
		if err := tx.SelectContext(ctx, &lines, interactionsQuery, asOf, since); err != nil {
			return fmt.Errorf("error loading interactions: %w", err)
		}
		snap.Interactions = recommend.BuildMatrix(lines)

		if err := tx.SelectContext(ctx, &snap.Inventory, inventoryQuery, asOf); err != nil {
			return fmt.Errorf("error loading inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("snapshot", snap.Label).
		Int("periods", len(snap.Revenue)).
		Int("customers", len(snap.Customers)).
		Int("entities", len(snap.Interactions)).
		Int("items", len(snap.Inventory)).
		Msg("snapshot loaded")

	return snap, nil
}

func (r *snapshotRepository) AvailablePeriods(ctx context.Context, granularity domain.Granularity, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 12
	}
	var periods []time.Time
	if err := r.db.SelectContext(ctx, &periods, availablePeriodsQuery, truncUnit(granularity), limit); err != nil {
		return nil, fmt.Errorf("error getting available periods: %w", err)
	}
	return periods, nil
}

// truncUnit maps a granularity onto a date_trunc unit, defaulting to month.
func truncUnit(g domain.Granularity) string {
	if parsed, ok := domain.ParseGranularity(string(g)); ok {
		return string(parsed)
	}
	return string(domain.GranularityMonth)
}

// periodStep is the interval between two consecutive date_trunc buckets.
// Postgres has no "quarter" interval unit.
func periodStep(unit string) string {
	if unit == string(domain.GranularityQuarter) {
		return "3 months"
	}
	return "1 " + unit
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
