package tickerdex

import (
	"github.com/kailas-cloud/tickerdex/internal/domain/search/result"
	"github.com/kailas-cloud/tickerdex/internal/usecase/retrieve"
	ingestuc "github.com/kailas-cloud/tickerdex/internal/usecase/ingest"
)

// Hit is one search result.
type Hit struct {
	Document string
	// Distance is the squared Euclidean distance to the query; lower is nearer.
	Distance float64
	Position int
}

// DroppedDocument is a document that could not be embedded during ingestion.
type DroppedDocument struct {
	Position int
	Err      error
}

// IngestResult summarizes an ingestion.
type IngestResult struct {
	Ticker        string
	Submitted     int
	Dropped       []DroppedDocument
	FirstPosition int
	Total         int
	Tokens        int
	// Pushed is true when the ticker was mirrored to the blob store afterwards.
	Pushed  bool
	PushErr error
}

// IsSentinel reports whether text returned by Retrieve is an absence message
// rather than retrieved context.
func IsSentinel(text string) bool { return retrieve.IsSentinel(text) }

func hitsFromResult(hits []result.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Document: h.Document(), Distance: h.Distance(), Position: h.Position()}
	}
	return out
}

func ingestResultFrom(r ingestuc.Result) IngestResult {
	out := IngestResult{
		Ticker:        r.Ticker.String(),
		Submitted:     r.Submitted,
		FirstPosition: r.Append.FirstPosition,
		Total:         r.Append.Total,
		Tokens:        r.Tokens,
	}
	for _, d := range r.Dropped {
		out.Dropped = append(out.Dropped, DroppedDocument{Position: d.Position, Err: d.Err})
	}
	if r.Push != nil {
		out.Pushed = r.Push.OK()
		out.PushErr = r.Push.Err()
	}
	return out
}
