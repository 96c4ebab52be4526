package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOIDCProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"issuer":"https://id.example","jwks_uri":"https://id.example/keys"}`))
	}))
	defer srv.Close()

	p, err := NewOIDCProvider(srv.URL + "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.JWKSURI != "https://id.example/keys" {
		t.Errorf("expected jwks_uri, got %q", p.JWKSURI)
	}
}

func TestNewOIDCProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"server error", `{}`, http.StatusInternalServerError},
		{"missing jwks_uri", `{"issuer":"x"}`, http.StatusOK},
		{"malformed", `{`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			if _, err := NewOIDCProvider(srv.URL); err == nil {
				t.Error("expected error")
			}
		})
	}
}
