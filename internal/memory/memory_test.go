package memory

import (
	"testing"
	"time"
)

func TestBiTemporalCurrentAndInvalidate(t *testing.T) {
	now := time.Now().UTC()
	bt := NewBiTemporal(now)
	if !bt.Current(now) {
		t.Fatal("freshly created record should be current now")
	}
	bt.Invalidate(now)
	if bt.Current(now.Add(time.Nanosecond)) {
		t.Fatal("record should not be current after invalidation instant")
	}
}

func TestWasValidAtClosedOpenInterval(t *testing.T) {
	start := time.Now().UTC()
	end := start.Add(time.Hour)
	bt := BiTemporal{ValidAt: start, InvalidAt: &end, CreatedAt: start}
	if !bt.WasValidAt(start) {
		t.Fatal("interval should include valid_at")
	}
	if bt.WasValidAt(end) {
		t.Fatal("interval should exclude invalid_at")
	}
	if !bt.WasValidAt(start.Add(time.Minute)) {
		t.Fatal("interval should include points strictly between")
	}
}

func TestInvalidateIdempotent(t *testing.T) {
	now := time.Now().UTC()
	bt := NewBiTemporal(now)
	first := now.Add(time.Minute)
	bt.Invalidate(first)
	later := now.Add(2 * time.Minute)
	bt.Invalidate(later.Add(time.Hour)) // attempting to push it later must not "revive" it
	if bt.Current(later) {
		t.Fatal("invalidation must be idempotent on the current predicate")
	}
}

func TestValidDurationNonNegative(t *testing.T) {
	now := time.Now().UTC()
	bt := NewBiTemporal(now)
	if d := bt.ValidDuration(now.Add(-time.Hour)); d != 0 {
		t.Fatalf("ValidDuration must clamp to >= 0, got %v", d)
	}
}

func TestBuilderRequiresFields(t *testing.T) {
	now := time.Now().UTC()
	_, err := NewBuilder(now).Title("x").Content("y").Build()
	if err == nil {
		t.Fatal("expected builder error for missing kind")
	}
}

func TestBuilderAssignsID(t *testing.T) {
	now := time.Now().UTC()
	rec, err := NewBuilder(now).
		Kind(Kind{Tag: KindConvention, Convention: &Convention{Name: "x", Description: "y"}}).
		Title("Use x").
		Content("Prefer x over y").
		Source(Source{Tag: SourceUserProvided}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected an assigned id")
	}
}

func TestCodeLinkClampsRelevance(t *testing.T) {
	l := NewCodeLink("n1", LinkFunction, 5.0)
	if l.Relevance != 1.0 {
		t.Fatalf("expected relevance clamped to 1.0, got %v", l.Relevance)
	}
}
