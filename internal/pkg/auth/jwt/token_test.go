package jwt

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1", Name: "amy"}, "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	got, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if got.ID != "u1" || got.Name != "amy" {
		t.Errorf("ParseToken() = %+v", got)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, _ := GenerateToken(&Payload{ID: "u1"}, "secret", time.Minute)
	expired, _ := GenerateToken(&Payload{ID: "u1"}, "secret", -time.Minute)
	noID, _ := GenerateToken(&Payload{}, "secret", time.Minute)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, "secret"},
		{"missing id", noID, "secret"},
		{"garbage", "not-a-token", "secret"},
		{"empty", "", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	token, _ := GenerateToken(&Payload{ID: "u1"}, "secret", time.Minute)

	var seen *Payload
	h := IdentityExtractorMiddleware("secret")(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("authenticated status = %d, want 204", w.Code)
	}
	if seen == nil || seen.ID != "u1" {
		t.Errorf("payload in context = %+v", seen)
	}
}
