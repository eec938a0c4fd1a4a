// Package auth verifies admin credentials on incoming requests.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Modes.
const (
	ModeDisabled = "disabled"
	ModeToken    = "token"
	ModeJWT      = "jwt"
)

// Principal is the verified caller.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

type ctxKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by the middleware, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}

var errUnauthorized = errors.New("unauthorized")

// Claims is the token payload issued to admins.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// Verifier checks bearer credentials according to its mode.
type Verifier struct {
	mode   string
	token  string
	secret []byte
	leeway time.Duration
	logger *slog.Logger
}

// Config selects how credentials are verified.
type Config struct {
	Mode      string
	Token     string
	JWTSecret string
}

// New creates a Verifier. Unknown modes are rejected.
func New(cfg Config, logger *slog.Logger) (*Verifier, error) {
	v := &Verifier{mode: cfg.Mode, leeway: 30 * time.Second, logger: logger}
	switch cfg.Mode {
	case ModeDisabled, "":
		v.mode = ModeDisabled
	case ModeToken:
		if cfg.Token == "" {
			return nil, fmt.Errorf("auth: token mode needs a token")
		}
		v.token = cfg.Token
	case ModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("auth: jwt mode needs a secret")
		}
		v.secret = []byte(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", cfg.Mode)
	}
	return v, nil
}

// Mode returns the effective mode.
func (v *Verifier) Mode() string { return v.mode }

// Verify resolves the Authorization header value into a principal.
func (v *Verifier) Verify(header string) (*Principal, error) {
	if v.mode == ModeDisabled {
		return &Principal{Subject: "anonymous", IsAdmin: true}, nil
	}

	scheme, raw, ok := strings.Cut(header, " ")
	raw = strings.TrimSpace(raw)
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return nil, fmt.Errorf("%w: expected Bearer <token>", errUnauthorized)
	}

	if v.mode == ModeToken {
		if subtle.ConstantTimeCompare([]byte(raw), []byte(v.token)) != 1 {
			return nil, fmt.Errorf("%w: invalid token", errUnauthorized)
		}
		return &Principal{Subject: "token", IsAdmin: true}, nil
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", errUnauthorized)
	}
	return &Principal{Subject: claims.Subject, Email: claims.Email, IsAdmin: claims.IsAdmin}, nil
}

// Sign issues an HS256 token. Used by operators and tests.
func (v *Verifier) Sign(p Principal, ttl time.Duration) (string, error) {
	if v.mode != ModeJWT {
		return "", fmt.Errorf("auth: signing needs jwt mode")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:   p.Email,
		IsAdmin: p.IsAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// RequireAdmin rejects requests without valid admin credentials: 401 when
// the credentials are missing or invalid, 403 when the caller is not an
// admin.
func (v *Verifier) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := v.Verify(r.Header.Get("Authorization"))
		if err != nil {
			v.logger.Debug("auth: rejected",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("error", err.Error()))
			deny(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !p.IsAdmin {
			deny(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
