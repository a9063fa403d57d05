package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/media"
	"github.com/sakif/journeyhub/internal/model"
)

// =========================================================================
// UpdateProfile TESTS
// =========================================================================

func TestUpdateProfile_ChangesEmail(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	got, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{Email: "new@x.com"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got.Email != "new@x.com" {
		t.Errorf("Email = %q, want new@x.com", got.Email)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, must not change", got.Username)
	}
}

func TestUpdateProfile_EmailTakenByAnotherUser(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")
	e.register(t, "bob")

	_, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{Email: "bob@x.com"})
	if !errors.Is(err, apperror.ErrValidation) || err.Error() != "Email already in use" {
		t.Fatalf("error = %v, want Email already in use", err)
	}
}

func TestUpdateProfile_SameEmailIsNoop(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	if _, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{Email: alice.Email}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
}

func TestUpdateProfile_MalformedEmail(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	_, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{Email: "not-an-email"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	_, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{
		CurrentPassword: "wrong", NewPassword: "brand-new",
	})
	if !errors.Is(err, apperror.ErrValidation) || err.Error() != "Current password is incorrect" {
		t.Fatalf("error = %v, want Current password is incorrect", err)
	}

	if _, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{
		CurrentPassword: "secret1", NewPassword: "brand-new",
	}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if _, err := e.auth.Authenticate(context.Background(), "alice", "secret1"); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("old password: error = %v, want ErrUnauthenticated", err)
	}
	if _, err := e.auth.Authenticate(context.Background(), "alice", "brand-new"); err != nil {
		t.Errorf("new password: error = %v", err)
	}
}

func TestUpdateProfile_PasswordNeedsBothFields(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	if _, err := e.users.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{NewPassword: "brand-new"}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if _, err := e.auth.Authenticate(context.Background(), "alice", "secret1"); err != nil {
		t.Errorf("password should be unchanged, got %v", err)
	}
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.UpdateProfile(context.Background(), "user-404", UpdateProfileInput{Email: "a@x.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// Avatar TESTS
// =========================================================================

func TestSetAvatar_ReplacesAndDestroysPrevious(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	first, err := e.users.SetAvatar(context.Background(), alice.ID, imageBody())
	if err != nil {
		t.Fatalf("first SetAvatar() error = %v", err)
	}
	second, err := e.users.SetAvatar(context.Background(), alice.ID, imageBody())
	if err != nil {
		t.Fatalf("second SetAvatar() error = %v", err)
	}

	if len(e.media.destroyed) != 1 || e.media.destroyed[0] != first.Filename {
		t.Errorf("destroyed = %v, want [%s]", e.media.destroyed, first.Filename)
	}
	stored, _ := e.store.GetUserByID(context.Background(), alice.ID)
	if stored.Avatar == nil || *stored.Avatar != *second {
		t.Errorf("stored avatar = %+v, want %+v", stored.Avatar, second)
	}
	if !strings.HasPrefix(second.Filename, media.FolderAvatars+"/") {
		t.Errorf("avatar stored outside %s: %s", media.FolderAvatars, second.Filename)
	}
}

func TestSetAvatar_DestroyFailureTolerated(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")
	if _, err := e.users.SetAvatar(context.Background(), alice.ID, imageBody()); err != nil {
		t.Fatal(err)
	}
	e.media.destroyErr = errors.New("cdn down")

	if _, err := e.users.SetAvatar(context.Background(), alice.ID, imageBody()); err != nil {
		t.Fatalf("SetAvatar() error = %v, deletion failure must be tolerated", err)
	}
}

func TestSetAvatar_InvalidImage(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")
	e.media.uploadErr = fmt.Errorf("decoding: %w", media.ErrInvalidImage)

	_, err := e.users.SetAvatar(context.Background(), alice.ID, imageBody())
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestSetAvatar_SaveFailureDestroysNewUpload(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")
	e.store.failOn["UpdateUser"] = errors.New("disk full")

	if _, err := e.users.SetAvatar(context.Background(), alice.ID, imageBody()); err == nil {
		t.Fatal("expected an error")
	}
	if len(e.media.destroyed) != 1 || e.media.destroyed[0] != e.media.uploaded[0].Filename {
		t.Errorf("destroyed = %v, want the orphaned upload", e.media.destroyed)
	}
}

func TestRemoveAvatar(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")
	img, _ := e.users.SetAvatar(context.Background(), alice.ID, imageBody())
	e.media.destroyErr = errors.New("already gone")

	if err := e.users.RemoveAvatar(context.Background(), alice.ID); err != nil {
		t.Fatalf("RemoveAvatar() error = %v", err)
	}
	stored, _ := e.store.GetUserByID(context.Background(), alice.ID)
	if stored.Avatar != nil {
		t.Errorf("Avatar = %+v, want nil", stored.Avatar)
	}
	if len(e.media.destroyed) != 1 || e.media.destroyed[0] != img.Filename {
		t.Errorf("destroyed = %v", e.media.destroyed)
	}
}

func TestRemoveAvatar_NoAvatar(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	if err := e.users.RemoveAvatar(context.Background(), alice.ID); err != nil {
		t.Fatalf("RemoveAvatar() error = %v", err)
	}
	if len(e.media.destroyed) != 0 {
		t.Error("nothing to destroy")
	}
}

// =========================================================================
// Stats TESTS
// =========================================================================

func TestStats_CountsAndRecent(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")
	bob := e.register(t, "bob")

	var last *model.Campground
	for i := 0; i < 7; i++ {
		last = e.pineRidge(t, alice.ID)
	}
	e.pineRidge(t, bob.ID)
	for i := 0; i < 2; i++ {
		if _, err := e.reviews.Create(context.Background(), alice.ID, last.ID, CreateReviewInput{Body: "x", Rating: intPtr(i)}); err != nil {
			t.Fatal(err)
		}
	}

	st, user, err := e.users.Stats(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if user.ID != alice.ID {
		t.Errorf("user = %s, want alice", user.ID)
	}
	if st.CampgroundCount != 7 || st.ReviewCount != 2 {
		t.Errorf("counts = %d/%d, want 7/2", st.CampgroundCount, st.ReviewCount)
	}
	if len(st.RecentCampgrounds) != RecentLimit {
		t.Errorf("recent campgrounds = %d, want %d", len(st.RecentCampgrounds), RecentLimit)
	}
	if st.RecentCampgrounds[0].ID != last.ID {
		t.Errorf("newest first: got %s, want %s", st.RecentCampgrounds[0].ID, last.ID)
	}
	if len(st.RecentReviews) != 2 {
		t.Errorf("recent reviews = %d, want 2", len(st.RecentReviews))
	}
}

func TestStats_EmptyListsAreNotNil(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice")

	st, _, err := e.users.Stats(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.RecentCampgrounds == nil || st.RecentReviews == nil {
		t.Error("empty lists should encode as [] not null")
	}
}
