package api

import (
	"net/http/httptest"
	"testing"

	"github.com/edmondoalex/buspro-core/internal/infrastructure/config"
)

func TestCheckAuthToken(t *testing.T) {
	auth := config.AuthConfig{Mode: config.AuthToken, Token: "s3cr3t"}

	tests := []struct {
		name   string
		header string
		query  string
		want   bool
	}{
		{name: "valid bearer", header: "Bearer s3cr3t", want: true},
		{name: "wrong token", header: "Bearer nope", want: false},
		{name: "missing", want: false},
		{name: "query token for websocket", query: "s3cr3t", want: true},
		{name: "wrong query token", query: "nope", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/devices", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.query != "" {
				q := r.URL.Query()
				q.Set("token", tt.query)
				r.URL.RawQuery = q.Encode()
			}

			if got := checkAuth(r, auth); got != tt.want {
				t.Errorf("checkAuth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckAuthBasic(t *testing.T) {
	auth := config.AuthConfig{Mode: config.AuthBasic, Username: "admin", Password: "pw"}

	r := httptest.NewRequest("GET", "/", nil)
	if checkAuth(r, auth) {
		t.Error("no credentials accepted")
	}

	r.SetBasicAuth("admin", "pw")
	if !checkAuth(r, auth) {
		t.Error("valid credentials rejected")
	}

	r2 := httptest.NewRequest("GET", "/", nil)
	r2.SetBasicAuth("admin", "wrong")
	if checkAuth(r2, auth) {
		t.Error("wrong password accepted")
	}
}

func TestCheckAuthNone(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if !checkAuth(r, config.AuthConfig{Mode: config.AuthNone}) {
		t.Error("mode none must accept everything")
	}
}

func TestIngressBypass(t *testing.T) {
	cfg := &config.Config{}
	cfg.API.Ingress = true
	cfg.Auth = config.AuthConfig{Mode: config.AuthToken, Token: "s3cr3t"}

	s := &Server{cfg: cfg}

	r := httptest.NewRequest("GET", "/api/devices", nil)
	r.Header.Set("X-Ingress-Path", "/hassio/ingress/abc")
	if !s.isIngress(r) {
		t.Error("ingress request not recognised")
	}

	// Without the header the bypass must not apply.
	r2 := httptest.NewRequest("GET", "/api/devices", nil)
	if s.isIngress(r2) {
		t.Error("non-ingress request bypassed auth")
	}

	// With ingress disabled in config the header is ignored.
	cfg.API.Ingress = false
	if s.isIngress(r) {
		t.Error("ingress bypass active despite config off")
	}
}
