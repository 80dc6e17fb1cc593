package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LiveAsk/LiveAsk_QA/backend/api-server/internal/models"
)

const (
	fallbackAvatar = "https://static.example.com/profile.svg"
	testTokenTTL   = time.Hour
)

// fakeProvider は固定のプロフィール（またはエラー）を返すテスト用Provider
type fakeProvider struct {
	profile Profile
	err     error
}

func (f *fakeProvider) Verify(context.Context, string) (Profile, error) {
	if f.err != nil {
		return Profile{}, f.err
	}
	return f.profile, nil
}

func TestSignInSuccess(t *testing.T) {
	a := NewAdapter(&fakeProvider{profile: Profile{
		UID:         "u1",
		DisplayName: "Ana",
		PhotoURL:    "https://example.com/ana.png",
	}}, fallbackAvatar)

	user, err := a.SignIn(context.Background(), "token")
	if err != nil {
		t.Fatalf("SignIn: unexpected error: %v", err)
	}
	want := models.User{UserId: "u1", UserName: "Ana", UserAvatar: "https://example.com/ana.png"}
	if user != want {
		t.Errorf("user = %+v, want %+v", user, want)
	}

	current := a.CurrentUser()
	if current == nil || *current != want {
		t.Errorf("CurrentUser = %+v, want %+v", current, want)
	}
}

func TestSignInMissingDisplayNameFails(t *testing.T) {
	a := NewAdapter(&fakeProvider{profile: Profile{
		UID:      "u1",
		PhotoURL: "https://example.com/ana.png",
	}}, fallbackAvatar)

	if _, err := a.SignIn(context.Background(), "token"); !errors.Is(err, ErrMissingProfileField) {
		t.Fatalf("err = %v, want ErrMissingProfileField", err)
	}
	// 失敗したサインインはユーザーを設定しない
	if a.CurrentUser() != nil {
		t.Errorf("CurrentUser = %+v, want nil", a.CurrentUser())
	}
}

func TestSignInMissingAvatarGetsFallback(t *testing.T) {
	a := NewAdapter(&fakeProvider{profile: Profile{UID: "u1", DisplayName: "Ana"}}, fallbackAvatar)

	user, err := a.SignIn(context.Background(), "token")
	if err != nil {
		t.Fatalf("SignIn: unexpected error: %v", err)
	}
	// アイコンURLの欠損だけはフォールバックで補われる（表示名とは違い失敗にしない）
	if user.UserAvatar != fallbackAvatar {
		t.Errorf("avatar = %q, want fallback %q", user.UserAvatar, fallbackAvatar)
	}
}

func TestSignInProviderFailure(t *testing.T) {
	a := NewAdapter(&fakeProvider{err: ErrProviderFailure}, fallbackAvatar)

	if _, err := a.SignIn(context.Background(), "bad"); !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if a.CurrentUser() != nil {
		t.Errorf("CurrentUser set after provider failure")
	}
}

func TestSubscribeDeliversSessionChanges(t *testing.T) {
	a := NewAdapter(&fakeProvider{profile: Profile{UID: "u1", DisplayName: "Ana"}}, fallbackAvatar)

	var events []*models.User
	unsub := a.Subscribe(func(u *models.User) { events = append(events, u) })

	if _, err := a.SignIn(context.Background(), "token"); err != nil {
		t.Fatalf("SignIn: unexpected error: %v", err)
	}
	a.SignOut()

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0] == nil || events[0].UserId != "u1" {
		t.Errorf("first event = %+v, want signed-in user", events[0])
	}
	if events[1] != nil {
		t.Errorf("second event = %+v, want nil (sign-out)", events[1])
	}

	unsub()
	unsub() // 二重解除も安全

	if _, err := a.SignIn(context.Background(), "token"); err != nil {
		t.Fatalf("SignIn: unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events = %d after unsubscribe, want 2", len(events))
	}
}

func TestJWTProviderRoundTrip(t *testing.T) {
	p := NewJWTProvider([]byte("secret"), "liveask-id")

	token, err := p.IssueToken("u1", "Ana", "https://example.com/ana.png", testTokenTTL)
	if err != nil {
		t.Fatalf("IssueToken: unexpected error: %v", err)
	}

	profile, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: unexpected error: %v", err)
	}
	want := Profile{UID: "u1", DisplayName: "Ana", PhotoURL: "https://example.com/ana.png"}
	if profile != want {
		t.Errorf("profile = %+v, want %+v", profile, want)
	}
}

func TestJWTProviderRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTProvider([]byte("secret"), "liveask-id")
	verifier := NewJWTProvider([]byte("other"), "liveask-id")

	token, err := issuer.IssueToken("u1", "Ana", "", testTokenTTL)
	if err != nil {
		t.Fatalf("IssueToken: unexpected error: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrProviderFailure) {
		t.Errorf("err = %v, want ErrProviderFailure", err)
	}
}

func TestJWTProviderRejectsWrongIssuer(t *testing.T) {
	issuer := NewJWTProvider([]byte("secret"), "someone-else")
	verifier := NewJWTProvider([]byte("secret"), "liveask-id")

	token, err := issuer.IssueToken("u1", "Ana", "", testTokenTTL)
	if err != nil {
		t.Fatalf("IssueToken: unexpected error: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrProviderFailure) {
		t.Errorf("err = %v, want ErrProviderFailure", err)
	}
}
