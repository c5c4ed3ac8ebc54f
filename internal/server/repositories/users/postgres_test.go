package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/copypaster/server/internal/server/models"
	"github.com/copypaster/server/internal/shared"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "is_verified",
		"verification_token", "verification_token_expiry",
		"reset_token", "reset_token_expiry", "created_at",
	})
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	createdAt := time.Now()
	expiry := time.Now().Add(24 * time.Hour)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\s*\(name,\s*email,\s*password_hash,\s*verification_token,\s*verification_token_expiry\)`).
		WithArgs("alice", "alice@example.com", "hash", "vtok", &expiry).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u-1", createdAt))

	u := &models.User{
		Name:                    "alice",
		Email:                   "alice@example.com",
		PasswordHash:            "hash",
		VerificationToken:       "vtok",
		VerificationTokenExpiry: &expiry,
	}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || !got.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Name: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := userRows().AddRow("u-1", "alice", "alice@example.com", "hash", true, "", nil, "", nil, time.Now())
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || !got.IsVerified {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, shared.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGetByVerificationToken_ChecksExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := userRows().AddRow("u-1", "alice", "a@b.c", "hash", false, "vtok", nil, "", nil, time.Now())
	mock.ExpectQuery(`(?s)WHERE\s+verification_token\s*=\s*\$1\s+AND\s+verification_token_expiry\s*>\s*now\(\)`).
		WithArgs("vtok").
		WillReturnRows(rows)

	got, err := repo.GetByVerificationToken(context.Background(), "vtok")
	if err != nil {
		t.Fatalf("GetByVerificationToken error: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByResetToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+reset_token\s*=\s*\$1\s+AND\s+reset_token_expiry\s*>\s*now\(\)`).
		WithArgs("stale").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByResetToken(context.Background(), "stale")
	if !errors.Is(err, shared.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestMarkVerified(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+users\s+SET\s+is_verified\s*=\s*TRUE`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkVerified(context.Background(), "u-1"); err != nil {
		t.Fatalf("MarkVerified error: %v", err)
	}
}

func TestMarkVerified_NoRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+users\s+SET\s+is_verified\s*=\s*TRUE`).
		WithArgs("u-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkVerified(context.Background(), "u-missing"); !errors.Is(err, shared.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestUpdatePassword_ClearsResetToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*reset_token\s*=\s*''`).
		WithArgs("u-1", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdatePassword(context.Background(), "u-1", "newhash"); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "u-2"); !errors.Is(err, shared.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}
