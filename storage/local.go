package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const BackendDisk = "disk"

// LocalStore writes attachments under a single directory. Uploads land in a
// hidden temp file first and are renamed only once fully written.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{dir: abs}, nil
}

func (s *LocalStore) Name() string { return BackendDisk }

func (s *LocalStore) Save(ctx context.Context, meta FileMeta, r io.Reader) (StoredFile, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return StoredFile{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return StoredFile{}, err
	}

	name := generatedName(meta.OriginalName)
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return StoredFile{}, fmt.Errorf("move upload into place: %w", err)
	}
	return StoredFile{Ref: name, Size: n, Backend: BackendDisk}, nil
}

// path rebuilds the on-disk location from a stored name only.
func (s *LocalStore) path(ref string) (string, error) {
	base := filepath.Base(ref)
	if base != ref || base == "." || base == ".." || strings.HasPrefix(base, ".") || strings.ContainsAny(base, `/\`) {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, base), nil
}

func (s *LocalStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}
