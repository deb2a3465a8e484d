// Package artifact encodes the two persisted halves of a per-ticker index:
// the vector-index artifact (binary) and the document mapping (JSON).
package artifact

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/domain/index"
)

const (
	// FormatVersion is the version written into both artifacts.
	FormatVersion = 1

	headerSize = 4 + 2 + 4 + 4
)

var magic = [4]byte{'T', 'D', 'X', 'I'}

// Vectors is the decoded vector-index artifact.
type Vectors struct {
	Dimension int
	Count     int
	Flat      []float32
}

type mapping struct {
	Version   int      `json:"version"`
	Documents []string `json:"documents"`
}

// EncodeVectors serializes the vector half of idx.
func EncodeVectors(idx index.Index) []byte {
	flat := idx.Flat()
	buf := make([]byte, headerSize+4*len(flat))

	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], FormatVersion)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(idx.Dimension()))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(idx.Len()))

	off := headerSize
	for _, v := range flat {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf
}

// DecodeVectors parses a vector-index artifact.
func DecodeVectors(data []byte) (Vectors, error) {
	if len(data) < headerSize {
		return Vectors{}, fmt.Errorf("vector artifact truncated (%d bytes): %w", len(data), domain.ErrCorruptArtifact)
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return Vectors{}, fmt.Errorf("vector artifact bad magic: %w", domain.ErrCorruptArtifact)
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != FormatVersion {
		return Vectors{}, fmt.Errorf("vector artifact version %d unsupported: %w", v, domain.ErrCorruptArtifact)
	}

	dim := int(binary.LittleEndian.Uint32(data[6:10]))
	count := int(binary.LittleEndian.Uint32(data[10:14]))
	body := data[headerSize:]
	if uint64(len(body)) != uint64(dim)*uint64(count)*4 {
		return Vectors{}, fmt.Errorf("vector artifact size %d does not match %d x %d: %w",
			len(body), count, dim, domain.ErrCorruptArtifact)
	}

	flat := make([]float32, dim*count)
	for i := range flat {
		flat[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return Vectors{Dimension: dim, Count: count, Flat: flat}, nil
}

// EncodeMapping serializes the document half of idx.
func EncodeMapping(idx index.Index) ([]byte, error) {
	docs := idx.Documents()
	if docs == nil {
		docs = []string{}
	}
	data, err := json.Marshal(mapping{Version: FormatVersion, Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}
	return data, nil
}

// DecodeMapping parses a document mapping artifact.
func DecodeMapping(data []byte) ([]string, error) {
	var m mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mapping artifact: %v: %w", err, domain.ErrCorruptArtifact)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("mapping artifact version %d unsupported: %w", m.Version, domain.ErrCorruptArtifact)
	}
	if m.Documents == nil {
		m.Documents = []string{}
	}
	return m.Documents, nil
}

// Decode rebuilds an index from both artifacts and checks they agree.
func Decode(vectorData, mappingData []byte) (index.Index, error) {
	vecs, err := DecodeVectors(vectorData)
	if err != nil {
		return index.Index{}, err
	}
	docs, err := DecodeMapping(mappingData)
	if err != nil {
		return index.Index{}, err
	}
	if vecs.Count != len(docs) {
		return index.Index{}, fmt.Errorf("vector artifact has %d slots, mapping has %d documents: %w",
			vecs.Count, len(docs), domain.ErrCorruptArtifact)
	}
	return index.Reconstruct(vecs.Dimension, vecs.Flat, docs)
}
