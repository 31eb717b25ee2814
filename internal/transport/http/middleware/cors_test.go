package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(origins))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORS_OriginMatching(t *testing.T) {
	cases := []struct {
		name    string
		origins []string
		origin  string
		allow   string
	}{
		{name: "wildcard", origins: []string{"*"}, origin: "https://anywhere.test", allow: "*"},
		{name: "listed origin echoed", origins: []string{"https://app.example.com"}, origin: "https://app.example.com", allow: "https://app.example.com"},
		{name: "unlisted origin gets no header", origins: []string{"https://app.example.com"}, origin: "https://evil.test", allow: ""},
	}

	for _, tc := range cases {
		router := newCORSRouter(tc.origins)
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.name, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.allow {
			t.Fatalf("%s: expected allow-origin %q, got %q", tc.name, tc.allow, got)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := newCORSRouter([]string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
		t.Fatalf("expected allow-methods %q, got %q", corsAllowMethods, got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
		t.Fatalf("expected allow-headers %q, got %q", corsAllowHeaders, got)
	}
}
