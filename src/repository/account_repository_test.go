package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestAccountRepositoryFindByKeyID(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &AccountRepository{db: mockDB}

	createdAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "api_key_id", "active", "created_at", "updated_at"}).
			AddRow(1, 7, "abc123", true, createdAt, createdAt)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trading_accounts" WHERE api_key_id = $1 ORDER BY "trading_accounts"."id" LIMIT $2`)).
			WithArgs("abc123", 1).
			WillReturnRows(rows)

		account, err := repo.FindByKeyID(context.Background(), "abc123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account == nil || account.ID != 1 || account.UserID != 7 {
			t.Fatalf("unexpected account: %+v", account)
		}
	})

	t.Run("not found returns nil, nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trading_accounts" WHERE api_key_id = $1 ORDER BY "trading_accounts"."id" LIMIT $2`)).
			WithArgs("missing", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		account, err := repo.FindByKeyID(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account != nil {
			t.Fatalf("expected nil account, got %+v", account)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestAccountRepositoryDeactivate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &AccountRepository{db: mockDB}

	t.Run("updates owned account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "trading_accounts" SET "active"=$1,"updated_at"=$2 WHERE id = $3 AND user_id = $4`)).
			WithArgs(false, sqlmock.AnyArg(), uint(3), uint(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := repo.Deactivate(context.Background(), 3, 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing or foreign account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "trading_accounts" SET "active"=$1,"updated_at"=$2 WHERE id = $3 AND user_id = $4`)).
			WithArgs(false, sqlmock.AnyArg(), uint(3), uint(9)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Deactivate(context.Background(), 3, 9)
		if err != gorm.ErrRecordNotFound {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
