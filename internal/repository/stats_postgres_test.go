package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

func newPostgresRepo(t *testing.T) (*PostgresStatsRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})

	return NewPostgresStatsRepository(mock, "Stats", "total"), mock
}

func TestPostgresStatsRepositoryAdd(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO "Stats" (id, "processed", "success") VALUES ($1, $2, $3) ` +
			`ON CONFLICT (id) DO UPDATE SET "processed" = "Stats"."processed" + EXCLUDED."processed", ` +
			`"success" = "Stats"."success" + EXCLUDED."success";`,
	)).
		WithArgs("total", int64(5), int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Add(context.Background(), model.Deltas{model.FieldProcessed: 5, model.FieldSuccess: 5}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestPostgresStatsRepositoryAddSingleField(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "Stats" (id, "requests") VALUES ($1, $2)`)).
		WithArgs("total", int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Add(context.Background(), model.Deltas{model.FieldRequests: 1, model.FieldSuccess: 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestPostgresStatsRepositoryAddZeroIsNoop(t *testing.T) {
	repo, _ := newPostgresRepo(t)

	if err := repo.Add(context.Background(), model.Deltas{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestPostgresStatsRepositoryAddError(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(`INSERT INTO "Stats"`).
		WithArgs("total", int64(1)).
		WillReturnError(boom)

	if err := repo.Add(context.Background(), model.Deltas{model.FieldRequests: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPostgresStatsRepositoryRead(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT processed, success, requests FROM "Stats" WHERE id = $1;`)).
		WithArgs("total").
		WillReturnRows(pgxmock.NewRows([]string{"processed", "success", "requests"}).
			AddRow(int64(8), int64(8), int64(11)))

	stats, err := repo.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := model.Stats{Processed: 8, Success: 8, Requests: 11}
	if *stats != want {
		t.Fatalf("Read() = %+v, want %+v", *stats, want)
	}
}

func TestPostgresStatsRepositoryReadMissing(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery(`SELECT processed, success, requests FROM "Stats"`).
		WithArgs("total").
		WillReturnError(pgx.ErrNoRows)

	stats, err := repo.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if *stats != (model.Stats{}) {
		t.Fatalf("expected zero stats, got %+v", *stats)
	}
}

func TestPostgresStatsRepositoryCustomTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresStatsRepository(mock, "Bookings", "total")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "Bookings" (`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "Bookings" (id, "requests") VALUES ($1, $2) ` +
		`ON CONFLICT (id) DO UPDATE SET "requests" = "Bookings"."requests" + EXCLUDED."requests";`)).
		WithArgs("total", int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	if err := repo.Add(context.Background(), model.Deltas{model.FieldRequests: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStatsRepositoryEnsureTableError(t *testing.T) {
	repo, mock := newPostgresRepo(t)
	denied := errors.New("permission denied for schema public")

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "Stats"`).WillReturnError(denied)

	if err := repo.EnsureTable(context.Background()); !errors.Is(err, denied) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
