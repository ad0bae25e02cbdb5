package config

import (
	"codedoc/internal/domain"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func parse(t *testing.T, vars map[string]string) (*Config, error) {
	t.Helper()
	return Parse(env.Options{Environment: vars})
}

func TestDefaults(t *testing.T) {
	c, err := parse(t, map[string]string{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e := c.Engine
	if e.BreakerThreshold != 5 || e.BreakerWindow != time.Minute || e.BreakerCooldown != time.Minute {
		t.Fatalf("unexpected breaker defaults: %+v", e)
	}
	if e.RetryMaxAttempts != 3 || e.RetryBackoffBase != time.Second {
		t.Fatalf("unexpected retry defaults: %+v", e)
	}
	if e.FanoutLimit != 10 || e.IngestFileLimit != 0 || e.ProvidersFile != "" {
		t.Fatalf("unexpected engine defaults: %+v", e)
	}
	if c.API.Port != 8000 || c.Log.Level != "info" || c.Log.Pretty {
		t.Fatalf("unexpected api/log defaults: %+v %+v", c.API, c.Log)
	}
	if c.Redis.Enabled || c.Redis.StreamKey != "codedoc:tasks" || c.Redis.DLQStreamKey != "codedoc:tasks:dlq" || c.Redis.ResultTTL != 24*time.Hour {
		t.Fatalf("unexpected redis defaults: %+v", c.Redis)
	}

	sla := e.SLAThresholds()
	if sla[domain.TypeUserQuery] != 500*time.Millisecond || sla[domain.TypePRWebhook] != 2*time.Second {
		t.Fatalf("unexpected sla thresholds: %v", sla)
	}
}

func TestOverrides(t *testing.T) {
	c, err := parse(t, map[string]string{
		"CIRCUIT_BREAKER_THRESHOLD": "2",
		"RETRY_BACKOFF_BASE":        "250ms",
		"QA_RESPONSE_TIMEOUT_MS":    "800",
		"FAN_OUT_CONCURRENCY_LIMIT": "4",
		"REDIS_ENABLED":             "true",
		"REDIS_ADDRESS":             "redis:6380",
		"LOG_PRETTY":                "true",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Engine.BreakerThreshold != 2 || c.Engine.RetryBackoffBase != 250*time.Millisecond || c.Engine.FanoutLimit != 4 {
		t.Fatalf("overrides not applied: %+v", c.Engine)
	}
	if got := c.Engine.SLAThresholds()[domain.TypeUserQuery]; got != 800*time.Millisecond {
		t.Fatalf("expected 800ms qa threshold, got %v", got)
	}
	if !c.Redis.Enabled || c.Redis.Addr != "redis:6380" || !c.Log.Pretty {
		t.Fatalf("overrides not applied: %+v %+v", c.Redis, c.Log)
	}
}

func TestValidate(t *testing.T) {
	_, err := parse(t, map[string]string{
		"CIRCUIT_BREAKER_THRESHOLD": "0",
		"RETRY_MAX_ATTEMPTS":        "0",
		"CIRCUIT_BREAKER_WINDOW":    "-1s",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, name := range []string{"CIRCUIT_BREAKER_THRESHOLD", "RETRY_MAX_ATTEMPTS", "CIRCUIT_BREAKER_WINDOW"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should mention %s: %v", name, err)
		}
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	if _, err := parse(t, map[string]string{"RETRY_BACKOFF_BASE": "soon"}); err == nil {
		t.Fatal("expected parse error for malformed duration")
	}
}
