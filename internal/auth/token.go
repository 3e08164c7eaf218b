// Package auth holds the browser-deposited bearer token and its
// probe-based liveness tracking.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoToken indicates no validated token is available.
var ErrNoToken = errors.New("no token available")

// ErrExpired indicates the stored token passed its stamped lifetime.
var ErrExpired = errors.New("token expired")

// ErrValidation indicates the provider rejected a deposited token.
var ErrValidation = errors.New("token validation failed")

const (
	// tokenLifetime is stamped on deposit regardless of what the
	// provider granted; the periodic probe is the real safeguard.
	tokenLifetime = time.Hour
	probeInterval = 45 * time.Minute
	probeTimeout  = 5 * time.Second
)

// Prober checks a bearer token against the provider profile endpoint.
type Prober interface {
	Probe(ctx context.Context, token string) error
}

// Store keeps the single live token for this process. All accessors
// observe the {value, expiresAt, validated} triple atomically.
type Store struct {
	prober Prober
	log    zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	value     string
	expiresAt time.Time
	validated bool
	stopProbe chan struct{}
}

// NewStore creates an empty Store.
func NewStore(prober Prober, log zerolog.Logger) *Store {
	return &Store{
		prober: prober,
		log:    log,
		now:    time.Now,
	}
}

// Deposit validates token against the provider and, on success, makes
// it the live token with a fresh one-hour expiry and a running
// periodic probe. A failed probe leaves the store empty.
func (s *Store) Deposit(ctx context.Context, token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, errors.New("empty token")
	}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := s.prober.Probe(pctx, token); err != nil {
		s.Invalidate()
		s.log.Warn().Err(err).Msg("Token deposit rejected by provider probe")
		return time.Time{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	expiry := s.now().Add(tokenLifetime)

	s.mu.Lock()
	s.value = token
	s.expiresAt = expiry
	s.validated = true
	s.restartProbeLocked()
	s.mu.Unlock()

	s.log.Info().Time("expiresAt", expiry).Msg("Token deposited and validated")

	return expiry, nil
}

// Adopt installs a token fetched from a sibling process. The sibling
// already validated it, so no probe runs and no local probe timer
// starts; the copy expires on the sibling's schedule.
func (s *Store) Adopt(token string, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = token
	s.expiresAt = expiry
	s.validated = true

	s.log.Info().Time("expiresAt", expiry).Msg("Token adopted from sibling")
}

// Token returns the live token value.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.value == "" || !s.validated {
		return "", ErrNoToken
	}
	if s.now().After(s.expiresAt) {
		return "", ErrExpired
	}

	return s.value, nil
}

// Snapshot reports validity and expiry for the health endpoint.
func (s *Store) Snapshot() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	valid := s.value != "" && s.validated && !s.now().After(s.expiresAt)

	return valid, s.expiresAt
}

// Invalidate clears the token and stops the probe timer. Called on
// provider 401s and failed deposits.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Close stops the probe timer without touching a still-valid token.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopProbe != nil {
		close(s.stopProbe)
		s.stopProbe = nil
	}
}

// ProbeRunning reports whether the periodic probe timer is active.
func (s *Store) ProbeRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopProbe != nil
}

// invalidateFrom clears the store only if stop is still the live probe
// channel; a deposit racing the probe keeps its fresh token.
func (s *Store) invalidateFrom(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopProbe == nil || (<-chan struct{})(s.stopProbe) != stop {
		return
	}
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.value = ""
	s.expiresAt = time.Time{}
	s.validated = false
	if s.stopProbe != nil {
		close(s.stopProbe)
		s.stopProbe = nil
	}
}

func (s *Store) restartProbeLocked() {
	if s.stopProbe != nil {
		close(s.stopProbe)
	}
	stop := make(chan struct{})
	s.stopProbe = stop

	go s.probeLoop(stop)
}

// probeLoop re-validates the token every probeInterval until stopped.
// Any failure empties the store and ends the loop.
func (s *Store) probeLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			token, err := s.Token()
			if err != nil {
				s.log.Warn().Err(err).Msg("Periodic probe found no live token")
				s.invalidateFrom(stop)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			err = s.prober.Probe(ctx, token)
			cancel()

			if err != nil {
				s.log.Warn().Err(err).Msg("Periodic probe failed, clearing token")
				s.invalidateFrom(stop)
				return
			}

			s.log.Debug().Msg("Periodic probe passed")
		}
	}
}
