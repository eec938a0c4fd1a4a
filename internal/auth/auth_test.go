package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustNew(t *testing.T, cfg Config) *Verifier {
	t.Helper()
	v, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func call(v *Verifier, header string) (int, *Principal) {
	var got *Principal
	h := v.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/taxi-cities", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, got
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Mode: "ldap"},
		{Mode: ModeToken},
		{Mode: ModeJWT},
	} {
		if _, err := New(cfg, testLogger()); err == nil {
			t.Errorf("New(%+v) succeeded", cfg)
		}
	}
}

func TestDisabledAdmitsEveryone(t *testing.T) {
	v := mustNew(t, Config{})
	code, p := call(v, "")
	if code != http.StatusNoContent || p == nil || !p.IsAdmin {
		t.Errorf("code=%d principal=%+v", code, p)
	}
}

func TestStaticToken(t *testing.T) {
	v := mustNew(t, Config{Mode: ModeToken, Token: "s3cret"})
	cases := map[string]int{
		"":                http.StatusUnauthorized,
		"s3cret":          http.StatusUnauthorized,
		"Bearer wrong":    http.StatusUnauthorized,
		"Basic s3cret":    http.StatusUnauthorized,
		"Bearer s3cret":   http.StatusNoContent,
		"bearer  s3cret ": http.StatusNoContent,
	}
	for header, want := range cases {
		if code, _ := call(v, header); code != want {
			t.Errorf("%q: code = %d, want %d", header, code, want)
		}
	}
}

func TestJWT(t *testing.T) {
	v := mustNew(t, Config{Mode: ModeJWT, JWTSecret: "jwt-secret"})

	admin, err := v.Sign(Principal{Subject: "u1", Email: "ops@example.com", IsAdmin: true}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	code, p := call(v, "Bearer "+admin)
	if code != http.StatusNoContent || p.Subject != "u1" || p.Email != "ops@example.com" {
		t.Errorf("admin: code=%d principal=%+v", code, p)
	}

	user, _ := v.Sign(Principal{Subject: "u2"}, time.Hour)
	if code, _ := call(v, "Bearer "+user); code != http.StatusForbidden {
		t.Errorf("non-admin code = %d, want 403", code)
	}

	expired, _ := v.Sign(Principal{Subject: "u1", IsAdmin: true}, -time.Hour)
	if code, _ := call(v, "Bearer "+expired); code != http.StatusUnauthorized {
		t.Errorf("expired code = %d, want 401", code)
	}

	other := mustNew(t, Config{Mode: ModeJWT, JWTSecret: "another"})
	forged, _ := other.Sign(Principal{Subject: "u1", IsAdmin: true}, time.Hour)
	if code, _ := call(v, "Bearer "+forged); code != http.StatusUnauthorized {
		t.Errorf("wrong key code = %d, want 401", code)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		IsAdmin:          true,
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if code, _ := call(v, "Bearer "+unsigned); code != http.StatusUnauthorized {
		t.Errorf("alg none code = %d, want 401", code)
	}
}
