package metrics

import "testing"

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/api/v1/apod", "/api/v1/apod"},
		{"/api/v1/apod/range", "/api/v1/apod/range"},
		{"/api/v1/neo/feed", "/api/v1/neo/feed"},
		{"/api/v1/neo/hazardous", "/api/v1/neo/hazardous"},
		{"/api/v1/neo/largest", "/api/v1/neo/largest"},
		{"/api/v1/rovers/compare", "/api/v1/rovers/compare"},
		{"/api/v1/correlate", "/api/v1/correlate"},
		{"/api/v1/correlate/range", "/api/v1/correlate/range"},
		{"/api/v1/compare/scale", "/api/v1/compare/scale"},

		// Parameterized routes collapse to one label.
		{"/api/v1/neo/2465633", "/api/v1/neo/{id}"},
		{"/api/v1/neo/3542519", "/api/v1/neo/{id}"},
		{"/api/v1/neo/2465633/danger", "/api/v1/neo/{id}/danger"},
		{"/api/v1/rovers/curiosity", "/api/v1/rovers/{rover}"},
		{"/api/v1/rovers/spirit", "/api/v1/rovers/{rover}"},
		{"/api/v1/rovers/curiosity/photos", "/api/v1/rovers/{rover}/photos"},
		{"/api/v1/rovers/opportunity/latest", "/api/v1/rovers/{rover}/latest"},
		{"/api/v1/rovers/spirit/status", "/api/v1/rovers/{rover}/status"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that many unique asteroid IDs produce
// exactly one distinct path label, not one per ID.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/neo/" + string(rune('0'+i%10)) + string(rune('0'+i/10)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
