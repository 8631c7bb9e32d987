package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Name() string { return "flaky" }

func (f *flakyStore) Save(_ context.Context, _ FileMeta, _ io.Reader) (StoredFile, error) {
	f.calls++
	return StoredFile{}, f.err
}

func (f *flakyStore) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader("ok")), nil
}

func (f *flakyStore) Delete(_ context.Context, _ string) error {
	f.calls++
	return f.err
}

func TestBreakerOpensOnBackendFailures(t *testing.T) {
	inner := &flakyStore{err: errors.New("disk on fire")}
	s := NewBreakerStore(inner, DefaultBreakerSettings("test", nil))

	for i := 0; i < 4; i++ {
		_, err := s.Open(context.Background(), "x")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	_, err := s.Open(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 4, inner.calls)
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	inner := &flakyStore{err: ErrNotFound}
	s := NewBreakerStore(inner, DefaultBreakerSettings("test", nil))

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, s.Delete(context.Background(), "x"), ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
	assert.Equal(t, "flaky", s.Name())
}

// abortedBody delivers a few bytes and then fails like a dropped connection.
type abortedBody struct{ sent bool }

func (a *abortedBody) Read(p []byte) (int, error) {
	if a.sent {
		return 0, io.ErrUnexpectedEOF
	}
	a.sent = true
	return copy(p, "partial"), nil
}

func TestBreakerIgnoresAbortedUploads(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStore(dir)
	require.NoError(t, err)
	s := NewBreakerStore(local, DefaultBreakerSettings("test", nil))

	for i := 0; i < 10; i++ {
		_, err := s.Save(context.Background(), FileMeta{OriginalName: "a.txt"}, LimitReader(&abortedBody{}, 1024))
		assert.ErrorIs(t, err, ErrClientRead)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())

	stored, err := s.Save(context.Background(), FileMeta{OriginalName: "a.txt"}, LimitReader(strings.NewReader("hello"), 1024))
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Size)
	assert.Equal(t, []string{stored.Ref}, listDir(t, dir))
}
