package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type stubHealthyEmbedder struct {
	stubEmbedder
	healthErr error
}

func (s *stubHealthyEmbedder) HealthCheck(_ context.Context) error { return s.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "financial news: ")

	result, err := emb.Embed(context.Background(), "AAPL beats estimates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "financial news: AAPL beats estimates" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	emb := NewInstructionEmbedder(inner, "q: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	if _, err := emb.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	healthErr := errors.New("unreachable")
	inner := &stubHealthyEmbedder{healthErr: healthErr}
	emb := NewInstructionEmbedder(inner, "q: ")

	if err := emb.HealthCheck(context.Background()); !errors.Is(err, healthErr) {
		t.Errorf("expected inner health error, got %v", err)
	}

	plain := NewInstructionEmbedder(&stubEmbedder{}, "q: ")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for embedder without health check, got %v", err)
	}
}

func TestEmbeddingUsage_AddTokens(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	UsageFromContext(ctx).AddTokens(0)

	if u.TotalTokens() != 7 {
		t.Errorf("expected 7 tokens, got %d", u.TotalTokens())
	}
	if u.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", u.Calls())
	}
}

func TestEmbeddingUsage_NilSafe(t *testing.T) {
	u := UsageFromContext(context.Background())
	if u != nil {
		t.Fatal("expected nil usage without collector")
	}
	u.AddTokens(5)
	if u.TotalTokens() != 0 || u.Calls() != 0 {
		t.Error("nil usage must report zero")
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := NewDimensionMismatch(3, 2, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected *DimensionMismatchError")
	}
	if dm.Expected != 3 || dm.Got != 2 || dm.Position != 1 {
		t.Errorf("unexpected fields: %+v", dm)
	}
	if err.Error() != "vector dimension mismatch: expected 3, got 2 at input 1" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestErrNoEmbeddings_WrapsUnavailable(t *testing.T) {
	if !errors.Is(ErrNoEmbeddings, ErrEmbeddingUnavailable) {
		t.Error("ErrNoEmbeddings must wrap ErrEmbeddingUnavailable")
	}
}
