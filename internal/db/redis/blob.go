package redis

import (
	"context"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tickerdex/internal/db"
)

// PutBlob stores data under {prefix}blob:{container}:{name}, overwriting any prior value.
func (s *Store) PutBlob(ctx context.Context, container, name string, data []byte) error {
	cmd := s.b().Set().Key(s.blobKey(container, name)).Value(rueidis.BinaryString(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// GetBlob returns the blob bytes or db.ErrKeyNotFound.
func (s *Store) GetBlob(ctx context.Context, container, name string) ([]byte, error) {
	cmd := s.b().Get().Key(s.blobKey(container, name)).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// ListBlobs returns the names of all blobs in a container.
func (s *Store) ListBlobs(ctx context.Context, container string) ([]string, error) {
	prefix := s.blobPrefix(container)
	pattern := escapeGlob(prefix) + "*"

	var names []string
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		for _, key := range res.Elements {
			if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
				names = append(names, name)
			}
		}
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	return names, nil
}

func (s *Store) blobPrefix(container string) string {
	return s.prefix + "blob:" + container + ":"
}

func (s *Store) blobKey(container, name string) string {
	return s.blobPrefix(container) + name
}

// escapeGlob escapes the SCAN MATCH metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
