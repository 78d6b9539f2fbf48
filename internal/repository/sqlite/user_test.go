package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
)

// newTestDB returns a fresh in-memory database closed at test cleanup.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser upserts a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, googleID, name string) *model.User {
	t.Helper()
	user := &model.User{
		GoogleID: googleID,
		Email:    name + "@example.com",
		Name:     name,
	}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestUserUpsert_NewUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		GoogleID:     "google-sub-1",
		Email:        "ada@example.com",
		Name:         "Ada",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenExpiry:  time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}

	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Upsert() did not set user.ID")
	}
	if user.Frequency != model.DefaultFrequency {
		t.Errorf("Frequency = %d, want %d", user.Frequency, model.DefaultFrequency)
	}

	found, err := db.GetUserByGoogleID(context.Background(), "google-sub-1")
	if err != nil {
		t.Fatalf("GetUserByGoogleID() error = %v", err)
	}
	if found.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want %q", found.RefreshToken, "refresh-1")
	}
	if !found.TokenExpiry.Equal(user.TokenExpiry) {
		t.Errorf("TokenExpiry = %v, want %v", found.TokenExpiry, user.TokenExpiry)
	}
}

func TestUserUpsert_ExistingUserKeepsIDAndFrequency(t *testing.T) {
	db := newTestDB(t)
	first := createTestUser(t, db, "google-sub-2", "before")

	if err := db.UpdateFrequency(context.Background(), first.ID, 4); err != nil {
		t.Fatalf("UpdateFrequency() error = %v", err)
	}

	second := &model.User{GoogleID: "google-sub-2", Email: "after@example.com", Name: "after"}
	if err := db.Upsert(context.Background(), second); err != nil {
		t.Fatalf("Upsert() second login: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Upsert() changed user ID: got %q, want %q", second.ID, first.ID)
	}
	if second.Frequency != 4 {
		t.Errorf("Frequency after login = %d, want 4", second.Frequency)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Upsert() changed CreatedAt: got %v, want %v", second.CreatedAt, first.CreatedAt)
	}

	found, err := db.GetUserByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Name != "after" || found.Email != "after@example.com" {
		t.Errorf("profile not updated: name=%q email=%q", found.Name, found.Email)
	}
}

func TestUserUpsert_PreservesRefreshTokenWhenOmitted(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{GoogleID: "google-sub-3", RefreshToken: "keep-me", AccessToken: "a1"}
	if err := db.Upsert(context.Background(), first); err != nil {
		t.Fatalf("Upsert() first: %v", err)
	}

	// Google omits refresh_token on repeat consent.
	second := &model.User{GoogleID: "google-sub-3", AccessToken: "a2"}
	if err := db.Upsert(context.Background(), second); err != nil {
		t.Fatalf("Upsert() second: %v", err)
	}

	found, err := db.GetUserByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.RefreshToken != "keep-me" {
		t.Errorf("RefreshToken = %q, want %q", found.RefreshToken, "keep-me")
	}
	if found.AccessToken != "a2" {
		t.Errorf("AccessToken = %q, want %q", found.AccessToken, "a2")
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestListUsers_RegistrationOrder(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "g-a", "a")
	b := createTestUser(t, db, "g-b", "b")
	c := createTestUser(t, db, "g-c", "c")

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("len(users) = %d, want 3", len(users))
	}
	for i, want := range []string{a.ID, b.ID, c.ID} {
		if users[i].ID != want {
			t.Errorf("users[%d].ID = %q, want %q", i, users[i].ID, want)
		}
	}
}

func TestListUsers_Empty(t *testing.T) {
	db := newTestDB(t)

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("len(users) = %d, want 0", len(users))
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateFrequency_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateFrequency(context.Background(), "ghost", 3)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateFrequency() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateTokens(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "g-tokens", "tokens")
	expiry := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	if err := db.UpdateTokens(context.Background(), user.ID, "new-access", "new-refresh", expiry); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.AccessToken != "new-access" || found.RefreshToken != "new-refresh" {
		t.Errorf("tokens = (%q, %q), want (new-access, new-refresh)", found.AccessToken, found.RefreshToken)
	}
	if !found.TokenExpiry.Equal(expiry) {
		t.Errorf("TokenExpiry = %v, want %v", found.TokenExpiry, expiry)
	}
	if !found.HasUploadAccess() {
		t.Error("HasUploadAccess() = false after storing a refresh token")
	}
}

func TestUpdateTokens_KeepsRefreshTokenWhenEmpty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "g-keep", "keep")

	if err := db.UpdateTokens(ctx, user.ID, "a1", "r1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}
	if err := db.UpdateTokens(ctx, user.ID, "a2", "", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}

	found, _ := db.GetUserByID(ctx, user.ID)
	if found.AccessToken != "a2" || found.RefreshToken != "r1" {
		t.Errorf("tokens = (%q, %q), want (a2, r1)", found.AccessToken, found.RefreshToken)
	}
}
