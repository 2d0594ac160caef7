package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"notevault-server/internal/domain"
)

func TestOwnerRepository_CreateIfAbsent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewOwnerRepository(db)
	owner := &domain.VaultOwner{ID: "o1", DisplayName: "Ada", CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO vault_owner").
		WithArgs(owner.ID, owner.DisplayName, owner.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.CreateIfAbsent(context.Background(), owner)
	if err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if !created {
		t.Error("expected first owner to be created")
	}

	// A row already exists: the guarded insert touches nothing.
	mock.ExpectExec("INSERT INTO vault_owner").
		WithArgs("o2", "Eve", owner.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err = repo.CreateIfAbsent(context.Background(), &domain.VaultOwner{
		ID: "o2", DisplayName: "Eve", CreatedAt: owner.CreatedAt,
	})
	if err != nil {
		t.Fatalf("CreateIfAbsent() error = %v", err)
	}
	if created {
		t.Error("second owner must not be created")
	}
}

func TestOwnerRepository_Get_Empty(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewOwnerRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM vault_owner").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "challenge", "challenge_issued_at", "created_at"}))

	owner, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if owner != nil {
		t.Errorf("expected nil before init, got %+v", owner)
	}
}

func TestOwnerRepository_Get_WithChallenge(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewOwnerRepository(db)
	issued := time.Now()

	rows := sqlmock.NewRows([]string{"id", "display_name", "challenge", "challenge_issued_at", "created_at"}).
		AddRow("o1", "Ada", "chal", issued, issued.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM vault_owner").WillReturnRows(rows)

	owner, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if owner == nil {
		t.Fatal("expected an owner")
	}
	if owner.Challenge != "chal" || owner.ChallengeIssuedAt == nil {
		t.Errorf("challenge fields lost: %+v", owner)
	}
}
