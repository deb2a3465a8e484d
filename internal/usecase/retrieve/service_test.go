package retrieve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/domain/search/result"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// --- Mocks ---

type mockSearcher struct {
	hits       []result.Hit
	err        error
	called     bool
	lastSymbol string
	lastK      int
}

func (m *mockSearcher) Search(_ context.Context, symbol string, _ []float32, k int) ([]result.Hit, error) {
	m.called = true
	m.lastSymbol = symbol
	m.lastK = k
	return m.hits, m.err
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: m.vec}, m.err
}

func newService(s *mockSearcher, e *mockEmbedder) *Service {
	return New(s, e, 0, zap.NewNop())
}

// --- Tests ---

func TestRetrieve_JoinsNearestFirst(t *testing.T) {
	s := &mockSearcher{hits: []result.Hit{
		result.New("MSFT: News: Azure growth", 0.1, 3),
		result.New("MSFT: Company: Microsoft", 0.4, 0),
		result.New("MSFT: Earnings: beat", 0.9, 1),
	}}
	svc := newService(s, &mockEmbedder{vec: []float32{1, 2}})

	got, err := svc.Retrieve(context.Background(), "msft", "How is cloud doing?", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "MSFT: News: Azure growth\n---\nMSFT: Company: Microsoft\n---\nMSFT: Earnings: beat"
	if got != want {
		t.Errorf("Retrieve = %q, want %q", got, want)
	}
	if s.lastSymbol != "MSFT" || s.lastK != 3 {
		t.Errorf("searched %q k=%d", s.lastSymbol, s.lastK)
	}
	if IsSentinel(got) {
		t.Error("real context must not be a sentinel")
	}
}

func TestRetrieve_EmptyIndexSentinel(t *testing.T) {
	svc := newService(&mockSearcher{hits: []result.Hit{}}, &mockEmbedder{vec: []float32{1}})

	got, err := svc.Retrieve(context.Background(), "goog", "anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "No context found for ticker: GOOG. Index may be empty or not yet scraped." {
		t.Errorf("Retrieve = %q", got)
	}
	if !IsSentinel(got) {
		t.Error("expected sentinel")
	}
}

func TestRetrieve_EmbeddingFailureSentinel(t *testing.T) {
	s := &mockSearcher{}
	svc := newService(s, &mockEmbedder{err: domain.ErrEmbeddingProviderError})

	got, err := svc.Retrieve(context.Background(), "AAPL", "q", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CouldNotEmbed || !IsSentinel(got) {
		t.Errorf("Retrieve = %q", got)
	}
	if s.called {
		t.Error("index must not be searched without a query vector")
	}
}

func TestRetrieve_EmptyEmbeddingSentinel(t *testing.T) {
	svc := newService(&mockSearcher{}, &mockEmbedder{vec: nil})
	got, err := svc.Retrieve(context.Background(), "AAPL", "q", 5)
	if err != nil || got != CouldNotEmbed {
		t.Errorf("Retrieve = %q, %v", got, err)
	}
}

func TestRetrieve_SearchErrorPropagates(t *testing.T) {
	svc := newService(&mockSearcher{err: domain.ErrCorruptArtifact}, &mockEmbedder{vec: []float32{1}})
	if _, err := svc.Retrieve(context.Background(), "AAPL", "q", 5); !errors.Is(err, domain.ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestRetrieve_InvalidInput(t *testing.T) {
	svc := newService(&mockSearcher{}, &mockEmbedder{vec: []float32{1}})
	ctx := context.Background()

	cases := []struct {
		name, symbol, query string
		k                   int
	}{
		{"bad ticker", "A/B", "q", 5},
		{"blank query", "AAPL", "  ", 5},
		{"zero k", "AAPL", "q", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Retrieve(ctx, tc.symbol, tc.query, tc.k); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSearch_ReturnsHits(t *testing.T) {
	hits := []result.Hit{result.New("a", 0, 0)}
	svc := newService(&mockSearcher{hits: hits}, &mockEmbedder{vec: []float32{1}})

	got, err := svc.Search(context.Background(), "AAPL", "q", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Search = %v, %v", got, err)
	}
}

func TestSearch_EmbeddingUnavailable(t *testing.T) {
	svc := newService(&mockSearcher{}, &mockEmbedder{err: errors.New("timeout")})
	if _, err := svc.Search(context.Background(), "AAPL", "q", 1); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestIsSentinel(t *testing.T) {
	if !IsSentinel(NoContext(ticker.MustParse("brk.b"))) {
		t.Error("NoContext must be a sentinel")
	}
	if IsSentinel("No context found for ticker: X") {
		t.Error("partial message is not a sentinel")
	}
	if !strings.Contains(NoContext(ticker.MustParse("brk.b")), "BRK.B") {
		t.Error("NoContext must name the normalized ticker")
	}
}
