package services

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStorage(t *testing.T) *StorageService {
	t.Helper()
	return NewStorageService(filepath.Join(t.TempDir(), "data.json"), testLogger())
}

func TestStorageGetOrCreateUser(t *testing.T) {
	s := newTestStorage(t)

	user, created, err := s.GetOrCreateUser(100, "Alice Example", "alice")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create the user")
	}
	if user.TelegramID != 100 || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}

	again, created, err := s.GetOrCreateUser(100, "Alice Renamed", "alice")
	if err != nil {
		t.Fatalf("GetOrCreateUser second call: %v", err)
	}
	if created {
		t.Fatal("expected second call to find the existing user")
	}
	if again.FullName != "Alice Renamed" {
		t.Fatalf("display name not refreshed: %q", again.FullName)
	}
}

func TestStorageLookupByUsername(t *testing.T) {
	s := newTestStorage(t)
	if _, _, err := s.GetOrCreateUser(100, "Alice", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, found := s.GetUserByUsername("alice"); !found {
		t.Fatal("expected to find user by username")
	}
	if _, found := s.GetUserByUsername("bob"); found {
		t.Fatal("did not expect to find unknown username")
	}
}

func TestStorageReferrals(t *testing.T) {
	s := newTestStorage(t)
	for id := int64(1); id <= 3; id++ {
		if _, _, err := s.GetOrCreateUser(id, "User", ""); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}

	if err := s.SetReferrer(2, 1); err != nil {
		t.Fatalf("SetReferrer: %v", err)
	}
	if err := s.SetReferrer(3, 1); err != nil {
		t.Fatalf("SetReferrer: %v", err)
	}

	if got := s.CountReferrals(1); got != 2 {
		t.Fatalf("CountReferrals = %d, want 2", got)
	}
	if got := s.CountReferrals(2); got != 0 {
		t.Fatalf("CountReferrals = %d, want 0", got)
	}
}

func TestStorageExtendSubscription(t *testing.T) {
	s := newTestStorage(t)
	if _, _, err := s.GetOrCreateUser(100, "Alice", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.ExtendSubscription(100, 14); err != nil {
		t.Fatalf("ExtendSubscription: %v", err)
	}
	user, _ := s.GetUser(100)
	firstEnd := user.SubscriptionEnd
	wantEnd := time.Now().Add(14 * 24 * time.Hour).Unix()
	if diff := firstEnd - wantEnd; diff < -2 || diff > 2 {
		t.Fatalf("subscription end %d not near %d", firstEnd, wantEnd)
	}

	// A second extension counts from the current end, not from now.
	if err := s.ExtendSubscription(100, 7); err != nil {
		t.Fatalf("second ExtendSubscription: %v", err)
	}
	user, _ = s.GetUser(100)
	if got, want := user.SubscriptionEnd, firstEnd+7*24*60*60; got != want {
		t.Fatalf("subscription end %d, want %d", got, want)
	}
}

func TestStoragePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.json")

	s := NewStorageService(file, testLogger())
	if _, _, err := s.GetOrCreateUser(100, "Alice", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.UpdateXuiUsername(100, "user_100"); err != nil {
		t.Fatalf("UpdateXuiUsername: %v", err)
	}
	if err := s.SetTrialReceived(100); err != nil {
		t.Fatalf("SetTrialReceived: %v", err)
	}

	reloaded := NewStorageService(file, testLogger())
	user, found := reloaded.GetUser(100)
	if !found {
		t.Fatal("user lost after reload")
	}
	if user.XuiUsername != "user_100" || !user.HasReceivedTrial {
		t.Fatalf("fields lost after reload: %+v", user)
	}
}

func TestStorageDeleteUser(t *testing.T) {
	s := newTestStorage(t)
	if _, _, err := s.GetOrCreateUser(100, "Alice", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.DeleteUser(100); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, found := s.GetUser(100); found {
		t.Fatal("user still present after delete")
	}

	// Deleting an absent user is not an error.
	if err := s.DeleteUser(100); err != nil {
		t.Fatalf("second DeleteUser: %v", err)
	}
	if got := s.CountUsers(); got != 0 {
		t.Fatalf("CountUsers = %d, want 0", got)
	}
}
