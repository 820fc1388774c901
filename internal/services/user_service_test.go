package services

import (
	"testing"

	"bolso/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	user, err := svc.CreateUser("maria@test.com", "secret123", "Maria")
	testutil.AssertNoError(t, err)
	if user.Password == "secret123" {
		t.Error("password must be stored hashed")
	}
	if !user.IsActive {
		t.Error("new users start active")
	}

	_, err = svc.CreateUser("maria@test.com", "other", "Maria Again")
	testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
}

func TestAttemptLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	created, err := svc.CreateUser("joao@test.com", "secret123", "João")
	testutil.AssertNoError(t, err)

	t.Run("valid", func(t *testing.T) {
		user, err := svc.AttemptLogin("joao@test.com", "secret123")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Errorf("logged in as %s, want %s", user.ID, created.ID)
		}
		if user.LastLoginAt == nil {
			t.Error("last_login_at must be stamped")
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := svc.AttemptLogin("joao@test.com", "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown_email", func(t *testing.T) {
		_, err := svc.AttemptLogin("nobody@test.com", "secret123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("inactive_user", func(t *testing.T) {
		testutil.AssertNoError(t, db.Model(created).Update("is_active", false).Error)
		_, err := svc.AttemptLogin("joao@test.com", "secret123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "hash-one"))

	stored, err := svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if stored != "hash-one" {
		t.Errorf("stored hash %q, want hash-one", stored)
	}

	// Rotation replaces the previous hash.
	testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "hash-two"))
	stored, err = svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if stored != "hash-two" {
		t.Errorf("stored hash %q, want hash-two", stored)
	}

	err = svc.StoreRefreshTokenHash("3a0b1f6e-0000-0000-0000-000000000000", "hash")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}
