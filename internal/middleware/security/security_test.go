package security

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerbot/internal/log"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct public client", "203.0.113.7:5555", "", "", "203.0.113.7"},
		{"public client cannot spoof", "203.0.113.7:5555", "1.2.3.4", "", "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:80", "198.51.100.4, 10.0.0.2", "", "198.51.100.4"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy garbage header", "127.0.0.1:80", "not-an-ip", "", "127.0.0.1"},
		{"unparseable remote", "somewhere", "", "", "somewhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:80"
	r.Header.Set("X-Forwarded-For", "198.51.100.4")
	if got := d.ExtractClientIP(r); got != "198.51.100.4" {
		t.Errorf("ExtractClientIP() = %q, want forwarded address", got)
	}
}

func TestDetectorMiddlewareLogsProbes(t *testing.T) {
	var buf bytes.Buffer
	d := NewDetector()
	called := 0
	h := d.Middleware(log.NewText(&buf, "info"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	if buf.Len() != 0 {
		t.Errorf("normal request should not be logged: %s", buf.String())
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.env", nil))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if called != 3 {
		t.Errorf("handler called %d times, want 3", called)
	}
	if got := strings.Count(buf.String(), "Suspicious request"); got != 2 {
		t.Errorf("logged %d suspicious requests, want 2", got)
	}
	if d.GetMetrics().SuspiciousRequests != 2 {
		t.Errorf("SuspiciousRequests = %d, want 2", d.GetMetrics().SuspiciousRequests)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}
