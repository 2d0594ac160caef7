package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func originTestHandler() http.Handler {
	return OriginMiddleware("https://vault.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestOriginMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		fetchSite  string
		wantStatus int
	}{
		{
			name:       "same-origin post allowed",
			method:     http.MethodPost,
			origin:     "https://vault.example",
			wantStatus: http.StatusOK,
		},
		{
			name:       "cross-origin post rejected",
			method:     http.MethodPost,
			origin:     "https://evil.example",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no origin allowed for native clients",
			method:     http.MethodPost,
			wantStatus: http.StatusOK,
		},
		{
			name:       "cross-site fetch metadata rejected",
			method:     http.MethodDelete,
			fetchSite:  "cross-site",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "get passes regardless of origin",
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
	}

	handler := originTestHandler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/notes", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestOriginPermitted_Allowlist(t *testing.T) {
	allowlist := "https://vault.example, https://app.vault.example"

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://vault.example", true},
		{"https://app.vault.example", true},
		{"https://evil.example", false},
		{"", true},
	}

	for _, tt := range tests {
		if got := OriginPermitted(tt.origin, allowlist); got != tt.want {
			t.Errorf("OriginPermitted(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
