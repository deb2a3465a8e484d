package localfs

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/kailas-cloud/tickerdex/internal/domain"
)

func newMemStorage(t *testing.T) (*Storage, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return New(fsys, "/data/index"), fsys
}

func TestWriteRead(t *testing.T) {
	s, _ := newMemStorage(t)

	if err := s.Write("AAPL_index.bin", []byte("v1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("AAPL_index.bin", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := s.Read("AAPL_index.bin")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("Read = %q, want v2", data)
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	s, fsys := newMemStorage(t)
	if err := s.Write("AAPL_index.bin", []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := afero.ReadDir(fsys, "/data/index")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "AAPL_index.bin" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestRead_Missing(t *testing.T) {
	s, _ := newMemStorage(t)
	if _, err := s.Read("GOOG_index.bin"); !errors.Is(err, domain.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestList(t *testing.T) {
	s, _ := newMemStorage(t)
	for _, n := range []string{"AAPL_index.bin", "AAPL_index_mapping.json", "MSFT_index.bin"} {
		if err := s.Write(n, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	names, err := s.List("_index.bin")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("List = %v, want 2 names", names)
	}
}

func TestList_MissingRoot(t *testing.T) {
	s, _ := newMemStorage(t)
	names, err := s.List("_index.bin")
	if err != nil || len(names) != 0 {
		t.Errorf("List on missing root = %v, %v", names, err)
	}
}

func TestPath_RejectsTraversal(t *testing.T) {
	s, _ := newMemStorage(t)
	for _, n := range []string{"", "../x", "a/b", ".hidden"} {
		if err := s.Write(n, []byte("x")); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Write(%q): expected ErrInvalidInput, got %v", n, err)
		}
	}
}
