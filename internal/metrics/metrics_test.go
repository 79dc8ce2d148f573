package metrics

import (
	"testing"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	// Vec collectors only appear once a label set has been observed.
	m.RequestsTotal.WithLabelValues("GET", "200", "/call-b").Inc()
	m.DownstreamResponses.WithLabelValues("200").Inc()
	m.DownstreamErrors.WithLabelValues("transport").Inc()
	m.DownstreamDuration.Observe(0.01)

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"service_a_http_requests_total":                 false,
		"service_a_downstream_responses_total":          false,
		"service_a_downstream_errors_total":             false,
		"service_a_downstream_request_duration_seconds": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s in gathered metrics", name)
		}
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Each call owns its registry, so constructing twice must not panic on
	// duplicate registration.
	a := New()
	b := New()
	if a.Registry == b.Registry {
		t.Error("expected distinct registries")
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := NormalizeMethod(tt.method); got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/call-b", "/call-b"},
		{"/call-b?x=1", "/call-b"},
		{"/call-b/", "/call-b"},
		{"/call-bb", "other"},
		{"/healthz", "/healthz"},
		{"/status", "/status"},
		{"/metrics", "/metrics"},
		{"/ping", "other"},
		{"/", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizeRoute(tt.path); got != tt.want {
				t.Errorf("NormalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
