package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository"
)

var asOf = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*snapshotRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &snapshotRepository{
		db:  Wrap(sqlx.NewDb(db, "postgres"), 2),
		now: func() time.Time { return asOf },
	}, mock
}

func TestLoadSnapshot(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`generate_series\(first_period, last_period, \$4::interval\)(.|\n)*LEFT JOIN filtered f`).
		WithArgs("week", asOf, sqlmock.AnyArg(), "1 week").
		WillReturnRows(sqlmock.NewRows([]string{"period", "value"}).
			AddRow(time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), 1000.0).
			AddRow(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC), 0.0).
			AddRow(time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC), 1200.0))
	mock.ExpectQuery("AS recency").
		WithArgs(asOf, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recency", "frequency", "monetary"}).
			AddRow("c1", 3.5, 4.0, 900.0))
	mock.ExpectQuery("AS item_id").
		WillReturnRows(sqlmock.NewRows([]string{"entity_id", "item_id", "quantity"}).
			AddRow("c1", "sku-1", 3.0).
			AddRow("c1", "sku-2", 1.0))
	mock.ExpectQuery("FROM inventory_levels").
		WithArgs(asOf).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "quantity_on_hand", "min_quantity", "average_daily_sales", "lead_time_days", "value",
		}).AddRow("sku-1", "Soap", 40.0, 50.0, 5.0, 7.0, 9125.0))
	mock.ExpectCommit()

	snap, err := repo.LoadSnapshot(context.Background(), repository.SnapshotFilter{Granularity: domain.GranularityWeek})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "2024-07-01", snap.Label)
	assert.Equal(t, asOf, snap.TakenAt)
	require.Len(t, snap.Revenue, 3)
	assert.Equal(t, 0.0, snap.Revenue[1].Value)
	assert.Equal(t, []domain.EntityFeatureVector{{ID: "c1", Features: []float64{3.5, 4, 900}}}, snap.Customers)
	assert.Equal(t, domain.RatingMatrix{"c1": {"sku-1": 3, "sku-2": 1}}, snap.Interactions)
	require.Len(t, snap.Inventory, 1)
	assert.Equal(t, 40.0, snap.Inventory[0].QuantityOnHand)
}

func TestLoadSnapshotRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("date_trunc").WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	_, err := repo.LoadSnapshot(context.Background(), repository.SnapshotFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading revenue series")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSnapshotQuarterStep(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("generate_series").
		WithArgs("quarter", asOf, sqlmock.AnyArg(), "3 months").
		WillReturnError(errors.New("stop"))
	mock.ExpectRollback()

	_, err := repo.LoadSnapshot(context.Background(), repository.SnapshotFilter{Granularity: domain.GranularityQuarter})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodStep(t *testing.T) {
	tests := map[string]string{
		"day":     "1 day",
		"week":    "1 week",
		"month":   "1 month",
		"quarter": "3 months",
		"year":    "1 year",
	}
	for unit, want := range tests {
		assert.Equal(t, want, periodStep(unit), unit)
	}
}

func TestAvailablePeriods(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT DISTINCT date_trunc").
		WithArgs("month", 12).
		WillReturnRows(sqlmock.NewRows([]string{"period"}).AddRow(asOf))

	periods, err := repo.AvailablePeriods(context.Background(), "fortnight", 0)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{asOf}, periods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxReleasesSemaphore(t *testing.T) {
	repo, mock := newMockRepo(t)

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		require.NoError(t, repo.db.WithSnapshotTx(context.Background(), func(tx *sqlx.Tx) error { return nil }))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCancelledContext(t *testing.T) {
	repo, _ := newMockRepo(t)
	require.NoError(t, repo.db.sem.Acquire(context.Background(), 2))
	defer repo.db.sem.Release(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.db.WithSnapshotTx(ctx, func(tx *sqlx.Tx) error { return nil })
	assert.ErrorContains(t, err, "could not acquire semaphore")
}
