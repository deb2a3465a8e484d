package result

// Hit is a single nearest-neighbour search hit.
type Hit struct {
	document string
	distance float64
	position int
}

// New creates a search hit.
func New(document string, distance float64, position int) Hit {
	return Hit{document: document, distance: distance, position: position}
}

// Document returns the stored document text.
func (h Hit) Document() string { return h.document }

// Distance returns the squared Euclidean distance to the query (lower is nearer).
func (h Hit) Distance() float64 { return h.distance }

// Position returns the insertion position of the slot.
func (h Hit) Position() int { return h.position }

// Documents extracts the document texts, preserving order.
func Documents(hits []Hit) []string {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = h.document
	}
	return docs
}
