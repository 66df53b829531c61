package embedengine

import (
	"context"
	"errors"
	"testing"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
)

type fakeEmbedder struct {
	calls   int
	failing bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("endpoint down")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := f.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake" }

func TestEmbedCachesRepeatedCalls(t *testing.T) {
	fe := &fakeEmbedder{}
	e, err := New(context.Background(), fe, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterProbe := fe.calls

	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if fe.calls != callsAfterProbe+1 {
		t.Fatalf("expected one new underlying call for repeated text, got %d new calls", fe.calls-callsAfterProbe)
	}
}

func TestSimilarityZeroOnLengthMismatch(t *testing.T) {
	fe := &fakeEmbedder{}
	e, _ := New(context.Background(), fe, 10)
	if got := e.Similarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 on length mismatch, got %v", got)
	}
}

func TestEmbedTripsCircuitAfterRepeatedFailures(t *testing.T) {
	fe := &fakeEmbedder{}
	e, err := New(context.Background(), fe, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fe.failing = true
	e.breaker = cgerrors.NewCircuitBreaker("test", cgerrors.WithMaxFailures(2))

	for i := 0; i < 2; i++ {
		if _, err := e.Embed(context.Background(), "distinct-"+string(rune('a'+i))); err == nil {
			t.Fatal("expected embed failure while endpoint is down")
		}
	}
	callsBeforeOpen := fe.calls
	if _, err := e.Embed(context.Background(), "yet-another"); err == nil {
		t.Fatal("expected circuit-open error once the breaker trips")
	}
	if fe.calls != callsBeforeOpen {
		t.Fatalf("expected breaker to short-circuit without calling the inner embedder, got %d new calls", fe.calls-callsBeforeOpen)
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	fe := &fakeEmbedder{}
	e, _ := New(context.Background(), fe, 10)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[1][0] != 2 {
		t.Fatalf("expected order preserved, got %+v", out)
	}
}
