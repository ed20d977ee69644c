package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/masonry/pkg/errors"
)

// fakeJWT builds an unsigned token with the given claims.
func fakeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantID  int64
		wantErr bool
	}{
		{"numeric user id", fakeJWT(t, map[string]any{"user_id": 42, "exp": exp}), 42, false},
		{"string user id", fakeJWT(t, map[string]any{"user_id": "7", "exp": exp}), 7, false},
		{"no user id", fakeJWT(t, map[string]any{"exp": exp}), 0, false},
		{"bad user id", fakeJWT(t, map[string]any{"user_id": "x"}), 0, true},
		{"not a jwt", "opaque-token", 0, true},
		{"bad payload", "a.!!!.c", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseClaims(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClaims() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.UserID != tt.wantID {
				t.Errorf("UserID = %d, want %d", c.UserID, tt.wantID)
			}
		})
	}
}

func TestNewUsesClaims(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	tok := fakeJWT(t, map[string]any{"user_id": 5, "username": "ann", "exp": exp.Unix()})

	sess := New(tok, "refresh", "fallback")
	if sess.ID == "" {
		t.Error("New should assign an ID")
	}
	if sess.UserID != 5 || sess.Username != "ann" {
		t.Errorf("session user = %d/%q, want 5/ann", sess.UserID, sess.Username)
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
	}

	opaque := New("opaque", "", "bob")
	if opaque.Username != "bob" || opaque.IsExpired() {
		t.Errorf("opaque-token session = %+v", opaque)
	}
}

func TestGuest(t *testing.T) {
	tok := fakeJWT(t, map[string]any{"user_id": 3})
	g := Guest(tok, "")
	if !g.Guest || g.UserID != GuestUserID || g.Username != GuestUsername {
		t.Errorf("Guest() = %+v", g)
	}
	user, pass := GuestCredentials()
	if user != "guest" || pass != "guest" {
		t.Errorf("GuestCredentials() = %q/%q", user, pass)
	}
}

func TestSessionToken(t *testing.T) {
	ctx := context.Background()

	var none *Session
	if tok, err := none.Token(ctx); tok != "" || err != nil {
		t.Errorf("nil session Token() = %q, %v", tok, err)
	}

	live := &Session{AccessToken: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	if tok, err := live.Token(ctx); tok != "abc" || err != nil {
		t.Errorf("Token() = %q, %v", tok, err)
	}

	dead := &Session{AccessToken: "abc", ExpiresAt: time.Now().Add(-time.Minute)}
	if _, err := dead.Token(ctx); !errors.Is(err, errors.ErrCodeSessionExpired) {
		t.Errorf("expired Token() error = %v, want SESSION_EXPIRED", err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sess := &Session{ID: "s1", AccessToken: "tok", Username: "ann", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}
	info, err := os.Stat(store.sessionPath("s1"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := store.Get(ctx, "s1")
	if err != nil || got == nil || got.AccessToken != "tok" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, "s1"); got != nil {
		t.Error("deleted session should be absent")
	}
	if err := store.Set(ctx, &Session{}); err == nil {
		t.Error("Set without ID should fail")
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for id, ttl := range map[string]time.Duration{"short": time.Minute, "long": 24 * time.Hour, "gone": -time.Hour} {
		if err := store.Set(ctx, &Session{ID: id, ExpiresAt: now.Add(ttl)}); err != nil {
			t.Fatal(err)
		}
	}
	if got, _ := store.Get(ctx, "gone"); got != nil {
		t.Error("expired session should be absent")
	}
	if got, _ := store.Get(ctx, "short"); got == nil {
		t.Fatal("live session should be present")
	}

	if err := os.WriteFile(filepath.Join(store.Path(), "broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)
	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(store.Path())
	if len(entries) != 1 || entries[0].Name() != "long.json" {
		t.Errorf("after Cleanup: %v, want only long.json", entries)
	}
}

func TestFileStoreCleanupCancelled(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(context.Background(), &Session{ID: "a", ExpiresAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Cleanup(ctx); err != context.Canceled {
		t.Errorf("Cleanup() = %v, want context.Canceled", err)
	}
}

func TestFileStorePathEscape(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatal(err)
	}
	p := store.sessionPath("../../etc/passwd")
	if filepath.Dir(p) != store.Path() {
		t.Errorf("sessionPath escaped the store: %s", p)
	}
}

func TestCLIStore(t *testing.T) {
	ctx := context.Background()
	cli, err := NewCLIStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if sess, err := cli.GetSession(ctx); sess != nil || err != nil {
		t.Fatalf("fresh store GetSession() = %+v, %v", sess, err)
	}

	sess := New("opaque", "", "ann")
	if err := cli.SaveSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, err := cli.GetSession(ctx)
	if err != nil || got == nil || got.Username != "ann" {
		t.Fatalf("GetSession() = %+v, %v", got, err)
	}
	if filepath.Base(cli.Path()) != "default.json" {
		t.Errorf("Path() = %s", cli.Path())
	}

	if err := cli.DeleteSession(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := cli.GetSession(ctx); got != nil {
		t.Error("session should be gone after DeleteSession")
	}
}
