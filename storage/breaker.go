package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerStore trips after repeated backend failures so uploads fail fast
// while the disk or database is unhealthy. Client side errors (missing
// file, oversized or aborted upload, cancelled request) never count as
// failures.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

func DefaultBreakerSettings(name string, onChange func(name string, from, to gobreaker.State)) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful:  isSuccessful,
		OnStateChange: onChange,
	}
}

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrClientRead) ||
		errors.Is(err, context.Canceled)
}

func NewBreakerStore(next Store, settings gobreaker.Settings) *BreakerStore {
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = isSuccessful
	}
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (s *BreakerStore) Name() string { return s.next.Name() }

func (s *BreakerStore) State() gobreaker.State { return s.cb.State() }

func (s *BreakerStore) Save(ctx context.Context, meta FileMeta, r io.Reader) (StoredFile, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Save(ctx, meta, r)
	})
	if err != nil {
		return StoredFile{}, translate(err)
	}
	return res.(StoredFile), nil
}

func (s *BreakerStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Open(ctx, ref)
	})
	if err != nil {
		return nil, translate(err)
	}
	return res.(io.ReadCloser), nil
}

func (s *BreakerStore) Delete(ctx context.Context, ref string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, ref)
	})
	return translate(err)
}

func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
