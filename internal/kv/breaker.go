package kv

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewBreakerStore wraps a Store with a circuit breaker so that a flapping
// backend fails checkout requests fast instead of hanging them. Key misses
// count as successes; they are part of the normal contract.
func NewBreakerStore(next Store) *BreakerStore {
	settings := gobreaker.Settings{
		Name:    "kv-store",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrKeyNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("%s circuit breaker: %s -> %s", name, from, to)
		},
	}
	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](settings),
	}
}

type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[string]
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	return s.cb.Execute(func() (string, error) {
		return s.next.Get(ctx, key)
	})
}

func (s *BreakerStore) Set(ctx context.Context, key, value string) error {
	_, err := s.cb.Execute(func() (string, error) {
		return "", s.next.Set(ctx, key, value)
	})
	return err
}
