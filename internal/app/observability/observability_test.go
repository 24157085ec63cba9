package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizedPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/assessments/9f9c2f6a-6f9e-4f58-9a2a-1f6d0c3b7e21", "/api/assessments/{id}"},
		{"/api/assessments/9f9c2f6a-6f9e-4f58-9a2a-1f6d0c3b7e21/students/a1/evaluation", "/api/assessments/{id}/students/{candidateKey}/evaluation"},
		{"/uploads/abc_sheet.pdf", "/uploads/{filename}"},
		{"/assessments", "/assessments"},
		{"", "/"},
	}
	for _, tc := range cases {
		if got := normalizedPath(tc.in); got != tc.want {
			t.Fatalf("normalizedPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractAssessmentID(t *testing.T) {
	id := "9f9c2f6a-6f9e-4f58-9a2a-1f6d0c3b7e21"
	if got := extractAssessmentID("/api/assessments/" + id + "/results/export"); got != id {
		t.Fatalf("expected %q, got %q", id, got)
	}
	if got := extractAssessmentID("/api/assessments/not-a-uuid"); got != "" {
		t.Fatalf("expected empty for malformed id, got %q", got)
	}
	if got := extractAssessmentID("/healthz"); got != "" {
		t.Fatalf("expected empty for unrelated path, got %q", got)
	}
}

func TestCollectorCountsRequests(t *testing.T) {
	c := NewCollector(nil)
	next := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		next.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assessments", nil))
	}

	w := httptest.NewRecorder()
	c.MetricsHandler(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, `gradeboard_http_requests_total{method="POST",path="/assessments",status="201"} 3`) {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
	if !strings.Contains(body, "gradeboard_uptime_seconds") {
		t.Fatalf("metrics output missing uptime gauge:\n%s", body)
	}
}
