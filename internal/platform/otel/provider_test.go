package otel_test

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xtding233/carbon-crafts/internal/platform/otel"
)

var testGame = otel.Game{Service: "carbon-test", ScenarioVersion: "2026.1", Class: "p3"}

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv(otel.EndpointEnv, "")
	t.Setenv(otel.EnabledEnv, "")

	shutdown, err := otel.Setup(context.Background(), testGame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	t.Setenv(otel.EndpointEnv, "http://localhost:4318")
	t.Setenv(otel.EnabledEnv, "false")
	t.Setenv(otel.SampleRatioEnv, "not a number")

	shutdown, err := otel.Setup(context.Background(), testGame)
	if err != nil {
		t.Fatalf("disabled tracing should not read the sample ratio: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetupCreatesProvider(t *testing.T) {
	// non-routable, nothing is exported
	t.Setenv(otel.EndpointEnv, "http://192.0.2.1:4318")
	t.Setenv(otel.EnabledEnv, "")
	t.Setenv(otel.SampleRatioEnv, "0.25")

	shutdown, err := otel.Setup(context.Background(), testGame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupRejectsBadSampleRatio(t *testing.T) {
	t.Setenv(otel.EndpointEnv, "http://192.0.2.1:4318")
	t.Setenv(otel.EnabledEnv, "")
	t.Setenv(otel.SampleRatioEnv, "1.5")

	if _, err := otel.Setup(context.Background(), testGame); err == nil {
		t.Fatalf("expected error for ratio 1.5")
	}
}

func TestSampler(t *testing.T) {
	cases := []struct {
		raw     string
		wantErr bool
		desc    string
	}{
		{"", false, "AlwaysOnSampler"},
		{" 0.5 ", false, "TraceIDRatioBased{0.5}"},
		{"0.1", false, "TraceIDRatioBased{0.1}"},
		{"-0.1", true, ""},
		{"often", true, ""},
	}
	for _, c := range cases {
		s, err := otel.Sampler(c.raw)
		if c.wantErr {
			if err == nil {
				t.Fatalf("Sampler(%q): expected error", c.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Sampler(%q): %v", c.raw, err)
		}
		if !strings.Contains(s.Description(), c.desc) {
			t.Fatalf("Sampler(%q) = %s, want %s", c.raw, s.Description(), c.desc)
		}
	}
}

func TestGameAttributes(t *testing.T) {
	got := map[attribute.Key]string{}
	for _, kv := range testGame.Attributes() {
		got[kv.Key] = kv.Value.AsString()
	}
	if got["service.name"] != "carbon-test" || got["carbon.scenario.version"] != "2026.1" || got["carbon.class"] != "p3" {
		t.Fatalf("attributes = %v", got)
	}

	if n := len(otel.Game{Service: "carbon"}.Attributes()); n != 1 {
		t.Fatalf("empty fields should be left out, got %d attributes", n)
	}
}
