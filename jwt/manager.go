package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MinSecretBytes is the shortest HMAC secret NewManager accepts.
const MinSecretBytes = 32

var (
	// ErrSigning wraps any failure to produce a signed token.
	ErrSigning = errors.New("token signing failed")
	// ErrMalformed is returned when a token cannot be decoded at all.
	ErrMalformed = errors.New("token malformed")
)

// Class distinguishes the two token kinds. Each class has its own secret and TTL.
type Class int

const (
	ClassAccess Class = iota
	ClassRefresh
)

func (c Class) String() string {
	switch c {
	case ClassAccess:
		return "access"
	case ClassRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Config holds the signing material and lifetimes for both token classes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

// Claims is the payload carried by both token classes.
type Claims struct {
	Email        string `json:"email"`
	TokenVersion int64  `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// Pair is a freshly minted access and refresh token.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg. Both secrets must be at least MinSecretBytes long
// and must differ so one class can never verify as the other.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) < MinSecretBytes {
		return nil, fmt.Errorf("access secret must be >= %d bytes", MinSecretBytes)
	}
	if len(cfg.RefreshSecret) < MinSecretBytes {
		return nil, fmt.Errorf("refresh secret must be >= %d bytes", MinSecretBytes)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}

	cfg.AccessSecret = bytes.Clone(cfg.AccessSecret)
	cfg.RefreshSecret = bytes.Clone(cfg.RefreshSecret)

	return &Manager{config: cfg, now: time.Now}, nil
}

// WithClock returns a copy of m that reads time from now. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	c := *m
	c.now = now
	return &c
}

// IssuePair signs an access and a refresh token for subject at version. The
// two signatures are computed concurrently. Nothing is persisted.
func (m *Manager) IssuePair(subject, email string, version int64) (Pair, error) {
	var (
		pair Pair
		g    errgroup.Group
	)

	g.Go(func() error {
		tok, err := m.sign(ClassAccess, subject, email, version)
		pair.AccessToken = tok
		return err
	})
	g.Go(func() error {
		tok, err := m.sign(ClassRefresh, subject, email, version)
		pair.RefreshToken = tok
		return err
	})

	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// ParseAccess fully verifies an access token.
func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parse(ClassAccess, token)
}

// ParseRefresh fully verifies a refresh token.
func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parse(ClassRefresh, token)
}

// DecodeUnverified reads the claims of token without checking its signature or
// expiry. The result must not be trusted for anything beyond routing the
// subsequent verification.
func (m *Manager) DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

func (m *Manager) sign(class Class, subject, email string, version int64) (string, error) {
	now := m.now()
	claims := Claims{
		Email:        email,
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl(class))),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret(class))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSigning, class, err)
	}
	return signed, nil
}

func (m *Manager) parse(class Class, token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret(class), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, errors.New("token iat too far in the future")
	}

	return claims, nil
}

func (m *Manager) secret(class Class) []byte {
	if class == ClassRefresh {
		return m.config.RefreshSecret
	}
	return m.config.AccessSecret
}

func (m *Manager) ttl(class Class) time.Duration {
	if class == ClassRefresh {
		return m.config.RefreshTTL
	}
	return m.config.AccessTTL
}
