package goSession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testEmail    = "user@example.com"
	testPassword = "correct-horse-battery"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestEngine(t *testing.T, cfg Config, s store.Store) *Engine {
	t.Helper()

	engine, err := New().WithConfig(cfg).WithStore(s).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func registerUser(t *testing.T, e *Engine, s store.Store, email string) (*store.User, TokenPair) {
	t.Helper()

	pair, err := e.Register(context.Background(), Profile{
		Email:     email,
		Password:  testPassword,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return mustUserByEmail(t, s, email), pair
}

func mustUserByEmail(t *testing.T, s store.Store, email string) *store.User {
	t.Helper()
	u, err := s.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail(%q) failed: %v", email, err)
	}
	return u
}

func mustUser(t *testing.T, s store.Store, id string) *store.User {
	t.Helper()
	u, err := s.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%q) failed: %v", id, err)
	}
	return u
}

func assertRefreshHash(t *testing.T, e *Engine, u *store.User, refreshToken string) {
	t.Helper()
	ok, err := e.hasher.Verify(password.TokenDigest(refreshToken), u.RefreshTokenHash)
	if err != nil || !ok {
		t.Fatalf("stored refresh hash does not match token (ok=%v err=%v)", ok, err)
	}
}

func TestRegisterStartsAtVersionZero(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)

	u, pair := registerUser(t, e, s, " User@Example.com ")
	if u.Email != testEmail {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.TokenVersion != 0 {
		t.Fatalf("expected token version 0, got %d", u.TokenVersion)
	}
	if u.PasswordHash == "" || u.PasswordHash == testPassword {
		t.Fatal("password must be stored hashed")
	}
	if u.FirstName != "Ada" || u.LastName != "Lovelace" {
		t.Fatalf("profile fields not stored: %+v", u)
	}
	assertRefreshHash(t, e, u, pair.RefreshToken)

	claims, err := e.tokens.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Subject != u.ID || claims.Email != testEmail || claims.TokenVersion != 0 {
		t.Fatalf("unexpected access claims: %+v", claims)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()

	if _, err := e.Register(ctx, Profile{Email: "not-an-email", Password: testPassword}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
	if _, err := e.Register(ctx, Profile{Email: testEmail, Password: "short"}); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("rejected registrations must not create users, have %d", s.Len())
	}
}

// A second registration with the same email is rejected without touching the first user.
func TestRegisterDuplicateEmail(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	registerUser(t, e, s, testEmail)

	pair, err := e.Register(context.Background(), Profile{Email: "USER@example.com", Password: "another-password"})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Fatal("no tokens may be issued for a duplicate registration")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 user, got %d", s.Len())
	}
}

func TestLoginStoresRefreshHash(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	registered, _ := registerUser(t, e, s, testEmail)

	pair, err := e.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	u := mustUser(t, s, registered.ID)
	assertRefreshHash(t, e, u, pair.RefreshToken)
	if u.TokenVersion != registered.TokenVersion {
		t.Fatalf("login must not change token version: %d -> %d", registered.TokenVersion, u.TokenVersion)
	}
}

func TestLoginWrongPasswordMutatesNothing(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	before, _ := registerUser(t, e, s, testEmail)

	_, err := e.Login(context.Background(), testEmail, "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	after := mustUser(t, s, before.ID)
	if after.RefreshTokenHash != before.RefreshTokenHash || after.TokenVersion != before.TokenVersion {
		t.Fatalf("session state changed on failed login: before=%+v after=%+v", before, after)
	}
}

func TestLoginUnknownAndInactiveUsers(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()

	if _, err := e.Login(ctx, "nobody@example.com", testPassword); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	u, _ := registerUser(t, e, s, testEmail)
	if err := s.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := e.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshInactiveUserRevokes(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()

	u, pair := registerUser(t, e, s, testEmail)
	if err := s.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := e.Refresh(ctx, u.ID, pair.RefreshToken)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got.AccessToken != "" || got.RefreshToken != "" {
		t.Fatalf("inactive user received tokens")
	}
	stored := mustUser(t, s, u.ID)
	if stored.HasSession() {
		t.Fatalf("expected refresh hash cleared")
	}
	if stored.TokenVersion != 1 {
		t.Fatalf("expected version 1 after revocation, got %d", stored.TokenVersion)
	}

	// Reactivation does not revive the old lineage.
	if err := s.SetActive(ctx, u.ID, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := e.Refresh(ctx, u.ID, pair.RefreshToken); err == nil {
		t.Fatalf("expected old refresh token to stay dead after reactivation")
	}
}

// Each refresh advances the version by one and only the newest token is accepted.
func TestRefreshChainRotates(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, v0 := registerUser(t, e, s, testEmail)

	v1, err := e.Refresh(ctx, u.ID, v0.RefreshToken)
	if err != nil {
		t.Fatalf("refresh 0->1 failed: %v", err)
	}
	if got := mustUser(t, s, u.ID).TokenVersion; got != 1 {
		t.Fatalf("expected version 1, got %d", got)
	}

	v2, err := e.Refresh(ctx, u.ID, v1.RefreshToken)
	if err != nil {
		t.Fatalf("refresh 1->2 failed: %v", err)
	}
	stored := mustUser(t, s, u.ID)
	if stored.TokenVersion != 2 {
		t.Fatalf("expected version 2, got %d", stored.TokenVersion)
	}
	assertRefreshHash(t, e, stored, v2.RefreshToken)

	claims, err := e.tokens.ParseRefresh(v2.RefreshToken)
	if err != nil || claims.TokenVersion != 2 {
		t.Fatalf("rotated token must carry version 2: claims=%+v err=%v", claims, err)
	}

	if _, err := e.Refresh(ctx, u.ID, v0.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("reusing the version-0 token: expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestPreviousRefreshTokenFailsAfterRotation(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, first := registerUser(t, e, s, testEmail)

	if _, err := e.Refresh(ctx, u.ID, first.RefreshToken); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	_, err := e.Refresh(ctx, u.ID, first.RefreshToken)
	if !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}

	// The replay also ended the session.
	after := mustUser(t, s, u.ID)
	if after.HasSession() {
		t.Fatal("replayed refresh must leave the session revoked")
	}
	if after.TokenVersion != 2 {
		t.Fatalf("expected compensating revoke to move version to 2, got %d", after.TokenVersion)
	}
}

func TestRefreshWithStaleVersionRevokes(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, v0 := registerUser(t, e, s, testEmail)

	if _, err := e.Refresh(ctx, u.ID, v0.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if got := mustUser(t, s, u.ID).TokenVersion; got != 1 {
		t.Fatalf("precondition: expected version 1, got %d", got)
	}

	_, err := e.Refresh(ctx, u.ID, v0.RefreshToken)
	if !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
	after := mustUser(t, s, u.ID)
	if after.TokenVersion != 2 || after.RefreshTokenHash != "" {
		t.Fatalf("expected version 2 and no hash, got version=%d hash=%q", after.TokenVersion, after.RefreshTokenHash)
	}
}

func TestRefreshWithoutSessionIsForbidden(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, pair := registerUser(t, e, s, testEmail)

	if err := e.RevokeAll(ctx, u.ID); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	before := mustUser(t, s, u.ID)

	if _, err := e.Refresh(ctx, u.ID, pair.RefreshToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := e.Refresh(ctx, "00000000-0000-0000-0000-000000000000", pair.RefreshToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unknown user: expected ErrForbidden, got %v", err)
	}
	if after := mustUser(t, s, u.ID); after.TokenVersion != before.TokenVersion {
		t.Fatal("a refresh without a session must not revoke again")
	}
}

func TestRefreshRejectionsRevoke(t *testing.T) {
	cases := []struct {
		name  string
		token func(t *testing.T, e *Engine, u *store.User, valid TokenPair) string
		want  error
	}{
		{
			name:  "garbage",
			token: func(*testing.T, *Engine, *store.User, TokenPair) string { return "not.a.jwt" },
			want:  ErrRefreshTokenInvalid,
		},
		{
			name: "access token presented as refresh",
			token: func(_ *testing.T, _ *Engine, _ *store.User, valid TokenPair) string {
				return valid.AccessToken
			},
			want: ErrRefreshTokenInvalid,
		},
		{
			name: "validly signed but not the latest",
			token: func(t *testing.T, e *Engine, u *store.User, _ TokenPair) string {
				other, err := e.tokens.IssuePair(u.ID, u.Email, u.TokenVersion)
				if err != nil {
					t.Fatalf("IssuePair: %v", err)
				}
				return other.RefreshToken
			},
			want: ErrRefreshTokenInvalid,
		},
		{
			name: "token for another subject",
			token: func(t *testing.T, e *Engine, u *store.User, _ TokenPair) string {
				other, err := e.tokens.IssuePair("someone-else", u.Email, u.TokenVersion)
				if err != nil {
					t.Fatalf("IssuePair: %v", err)
				}
				return other.RefreshToken
			},
			want: ErrRefreshTokenInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := memory.New()
			e := newTestEngine(t, testConfig(), s)
			u, pair := registerUser(t, e, s, testEmail)

			_, err := e.Refresh(context.Background(), u.ID, tc.token(t, e, u, pair))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			after := mustUser(t, s, u.ID)
			if after.HasSession() || after.TokenVersion != u.TokenVersion+1 {
				t.Fatalf("expected revoked session at version %d, got %+v", u.TokenVersion+1, after)
			}
			if _, err := e.Refresh(context.Background(), u.ID, pair.RefreshToken); err == nil {
				t.Fatal("the legitimate token must be dead after a rejected refresh")
			}
		})
	}
}

func TestExpiredRefreshTokenRevokes(t *testing.T) {
	s := memory.New()
	now := time.Now()
	cfg := testConfig()
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour

	e, err := New().WithConfig(cfg).WithStore(s).WithClock(func() time.Time { return now }).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	u, pair := registerUser(t, e, s, testEmail)

	now = now.Add(2 * time.Hour)
	if _, err := e.Refresh(context.Background(), u.ID, pair.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid for expired token, got %v", err)
	}
	if mustUser(t, s, u.ID).HasSession() {
		t.Fatal("expired refresh must revoke")
	}
}

func TestRevokeAllIsIdempotentAndMonotonic(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, _ := registerUser(t, e, s, testEmail)

	last := u.TokenVersion
	for i := 0; i < 3; i++ {
		if err := e.RevokeAll(ctx, u.ID); err != nil {
			t.Fatalf("RevokeAll #%d: %v", i, err)
		}
		after := mustUser(t, s, u.ID)
		if after.HasSession() {
			t.Fatalf("RevokeAll #%d left a refresh hash", i)
		}
		if after.TokenVersion <= last {
			t.Fatalf("RevokeAll #%d: version %d did not increase past %d", i, after.TokenVersion, last)
		}
		last = after.TokenVersion
	}

	if err := e.RevokeAll(ctx, "00000000-0000-0000-0000-000000000000"); err != nil {
		t.Fatalf("RevokeAll on unknown user must be a no-op, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, pair := registerUser(t, e, s, testEmail)

	res, err := e.Logout(ctx, u.ID)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if res.Message != "Logout successful" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	after := mustUser(t, s, u.ID)
	if after.HasSession() || after.TokenVersion <= u.TokenVersion {
		t.Fatalf("logout must clear the hash and advance the version, got %+v", after)
	}

	if _, err := e.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("access token issued before logout: expected ErrSessionExpired, got %v", err)
	}
	if _, err := e.Refresh(ctx, u.ID, pair.RefreshToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("refresh after logout: expected ErrForbidden, got %v", err)
	}

	// A later login must not resurrect tokens from before the logout.
	if _, err := e.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login after logout: %v", err)
	}
	if _, err := e.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("old access token after re-login: expected ErrSessionExpired, got %v", err)
	}

	if _, err := e.Logout(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := memory.New()
	e := newTestEngine(t, testConfig(), s)
	ctx := context.Background()
	u, pair := registerUser(t, e, s, testEmail)

	id, err := e.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.UserID != u.ID || id.Email != testEmail || id.TokenVersion != 0 {
		t.Fatalf("unexpected identity %+v", id)
	}

	if _, err := e.Authenticate(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token as access: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := e.Authenticate(ctx, ""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("empty token: expected ErrTokenInvalid, got %v", err)
	}

	if err := s.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := e.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("inactive user: expected ErrForbidden, got %v", err)
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	ctx := context.Background()

	if _, err := e.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login: %v", err)
	}
	if _, err := e.Refresh(ctx, "u", "t"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Refresh: %v", err)
	}
	if err := e.RevokeAll(ctx, "u"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("RevokeAll: %v", err)
	}
	if got := e.MetricsSnapshot(); len(got.Counters) != 0 {
		t.Fatal("nil engine snapshot must be empty")
	}
	e.Close()
}
