package backoff

import (
	"math"
	"testing"
	"time"
)

func TestExponential(t *testing.T) {
	base := time.Second
	if got := Exponential(base, 0); got != time.Second {
		t.Fatalf("expected 1s, got %v", got)
	}
	if got := Exponential(base, 1); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
	if got := Exponential(base, 3); got != 8*time.Second {
		t.Fatalf("expected 8s, got %v", got)
	}
	if got := Exponential(0, 3); got != 0 {
		t.Fatalf("expected 0 for zero base, got %v", got)
	}
	if got := Exponential(base, -1); got != 0 {
		t.Fatalf("expected 0 for negative attempt, got %v", got)
	}
}

func TestExponentialOverflow(t *testing.T) {
	if got := Exponential(time.Duration(math.MaxInt64/2), 4); got != time.Duration(math.MaxInt64) {
		t.Fatalf("expected saturation, got %v", got)
	}
}

func TestExponentialJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 6; attempt++ {
		want := Exponential(100*time.Millisecond, attempt-1)
		if want > time.Second {
			want = time.Second
		}
		for i := 0; i < 50; i++ {
			got := ExponentialJitter(100*time.Millisecond, time.Second, attempt)
			lo := want - want/5
			hi := want + want/5
			if got < lo || got > hi {
				t.Fatalf("attempt %d: %v outside [%v, %v]", attempt, got, lo, hi)
			}
		}
	}
}

func TestExponentialJitterZeroBase(t *testing.T) {
	if got := ExponentialJitter(0, time.Second, 3); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
