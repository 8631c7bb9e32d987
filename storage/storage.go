// Package storage keeps the bytes of task attachments. A deployment picks
// exactly one backend (local disk or GridFS); the attachment record stores
// the backend name next to the reference so reads always go to the writer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("stored file not found")
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
	ErrUnavailable = errors.New("attachment storage unavailable")
	// ErrClientRead wraps failures reading the upload body, such as a client
	// that disconnects mid-transfer. They say nothing about backend health.
	ErrClientRead = errors.New("reading upload body")
)

type FileMeta struct {
	OriginalName string
	MimeType     string
	UploadedBy   string
	TaskID       string
}

type StoredFile struct {
	Ref     string
	Size    int64
	Backend string
}

type Store interface {
	Name() string
	Save(ctx context.Context, meta FileMeta, r io.Reader) (StoredFile, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// generatedName returns a random file name that keeps a sane extension of
// the client supplied name.
func generatedName(original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

type limitedReader struct {
	r    io.Reader
	left int64
}

// LimitReader fails with ErrTooLarge as soon as more than max bytes are read.
// Unlike io.LimitReader it never silently truncates. Any other read error is
// wrapped in ErrClientRead.
func LimitReader(r io.Reader, max int64) io.Reader {
	return &limitedReader{r: r, left: max}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n + int(l.left), ErrTooLarge
	}
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", ErrClientRead, err)
	}
	return n, err
}
