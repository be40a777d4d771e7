package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestUserJWT(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		header   string
		wantCode int
	}{
		{"auth not configured", "", "Bearer " + signedToken(t, "secret", "user-1"), http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"wrong secret", "secret", "Bearer " + signedToken(t, "other", "user-1"), http.StatusUnauthorized},
		{"missing subject", "secret", "Bearer " + signedToken(t, "secret", ""), http.StatusUnauthorized},
		{"valid", "secret", "Bearer " + signedToken(t, "secret", "user-1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			handler := UserJWT(tt.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/campaigns/c1/dispatch", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantCode == http.StatusOK && gotUser != "user-1" {
				t.Fatalf("expected user-1 in context, got %q", gotUser)
			}
		})
	}
}

func TestParseUserToken(t *testing.T) {
	sub, err := ParseUserToken("secret", "Bearer "+signedToken(t, "secret", "user-7"))
	if err != nil || sub != "user-7" {
		t.Fatalf("expected user-7, got %q (%v)", sub, err)
	}
	cases := map[string]struct {
		secret string
		header string
		want   error
	}{
		"no secret": {"", "Bearer x", ErrAuthNotConfigured},
		"no bearer": {"secret", "Basic abc", ErrMissingBearer},
		"bad sig":   {"secret", "Bearer " + signedToken(t, "other", "user-7"), ErrInvalidToken},
		"empty sub": {"secret", "Bearer " + signedToken(t, "secret", " "), ErrNoSubject},
		"garbage":   {"secret", "Bearer not.a.jwt", ErrInvalidToken},
	}
	for name, tc := range cases {
		if _, err := ParseUserToken(tc.secret, tc.header); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["status"] != float64(http.StatusAccepted) {
		t.Fatalf("expected status 202 in log, got %v", line["status"])
	}
	if line["request_id"] != "req-123" {
		t.Fatalf("expected request id in log, got %v", line["request_id"])
	}
}
