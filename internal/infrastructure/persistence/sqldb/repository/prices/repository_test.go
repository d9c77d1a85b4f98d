package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"price-peak-monitor/internal/core/domain/snapshot"
	"price-peak-monitor/internal/infrastructure/persistence/sqldb"
	"price-peak-monitor/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	repo := NewRepository(sqlx.NewDb(raw, "postgres"), sqldb.Postgres)
	t.Cleanup(func() { repo.Close() })
	return repo, mock
}

func TestAppend(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		old    *int64
		oldArg interface{}
	}{
		{name: "with discount", old: snapshot.Int64(949900), oldArg: int64(949900)},
		{name: "without discount", old: nil, oldArg: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepository(t)
			mock.ExpectExec("INSERT INTO prices").
				WithArgs("Notebook", tt.oldArg, int64(829900), int64(83000), at).
				WillReturnResult(sqlmock.NewResult(1, 1))

			err := repo.Append(context.Background(), snapshot.PriceSnapshot{
				ProductName:      "Notebook",
				OldPrice:         tt.old,
				NewPrice:         829900,
				InstallmentPrice: 83000,
				CapturedAt:       at,
			})
			if err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestAppendFailureIsStoreError(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectExec("INSERT INTO prices").WillReturnError(errors.New("connection reset"))

	err := repo.Append(context.Background(), snapshot.PriceSnapshot{
		ProductName: "Notebook",
		NewPrice:    100,
		CapturedAt:  time.Now(),
	})

	var storeErr *storage.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Op != storage.OpAppend {
		t.Fatalf("expected op %q, got %q", storage.OpAppend, storeErr.Op)
	}
}

func TestAppendRejectsInvalidSnapshot(t *testing.T) {
	repo, mock := newRepository(t)

	err := repo.Append(context.Background(), snapshot.PriceSnapshot{NewPrice: 100})
	if !errors.Is(err, snapshot.ErrEmptyProductName) {
		t.Fatalf("expected ErrEmptyProductName, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestCurrentMaximum(t *testing.T) {
	repo, mock := newRepository(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT new_price, timestamp FROM prices").
		WillReturnRows(sqlmock.NewRows([]string{"new_price", "timestamp"}).AddRow(int64(829900), at))

	max, ok, err := repo.CurrentMaximum(context.Background())
	if err != nil {
		t.Fatalf("CurrentMaximum: %v", err)
	}
	if !ok {
		t.Fatal("expected maximum to be present")
	}
	if max.MaxPrice != 829900 || !max.MaxPriceAt.Equal(at) {
		t.Fatalf("unexpected maximum %+v", max)
	}
}

func TestCurrentMaximumEmptyHistory(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectQuery("SELECT new_price, timestamp FROM prices").
		WillReturnRows(sqlmock.NewRows([]string{"new_price", "timestamp"}))

	_, ok, err := repo.CurrentMaximum(context.Background())
	if err != nil {
		t.Fatalf("CurrentMaximum: %v", err)
	}
	if ok {
		t.Fatal("expected no maximum for empty history")
	}
}

func TestCurrentMaximumFailure(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectQuery("SELECT new_price, timestamp FROM prices").WillReturnError(errors.New("timeout"))

	_, _, err := repo.CurrentMaximum(context.Background())
	var storeErr *storage.StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != storage.OpMaximum {
		t.Fatalf("expected maximum StoreError, got %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}
