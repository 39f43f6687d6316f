// Package timesync keeps the estimated offset between the local clock and
// the exchange server clock, so that signed timestamps stay inside the
// exchange acceptance window.
//
// A Synchronizer is owned by a single client. Its state is guarded by a
// mutex and concurrent refreshes are coalesced, so a burst of stale
// callers triggers at most one network round trip.
package timesync

import (
	"bitunix/internal/exchange/apierr"
	"bitunix/internal/logger"
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

type Trigger string

const (
	TriggerInitial  Trigger = "initial"
	TriggerTTL      Trigger = "ttl"
	TriggerReactive Trigger = "reactive"
	TriggerManual   Trigger = "manual"
)

// DefaultTimeout bounds one refresh, retries of the primary source included.
const DefaultTimeout = time.Minute

// Sample is one server time reading. SentAt is the local time the request
// that produced it went out; zero means the synchronizer takes the local
// reading right before asking the source.
type Sample struct {
	ServerMs int64
	SentAt   time.Time
}

// A Source reports the current server time.
type Source interface {
	ServerTime(ctx context.Context) (Sample, error)
}

type SourceFunc func(ctx context.Context) (Sample, error)

func (f SourceFunc) ServerTime(ctx context.Context) (Sample, error) {
	return f(ctx)
}

type Observer interface {
	ObserveSync(trigger, source string, offsetMs int64)
}

// Offset is a snapshot of the synchronizer state.
type Offset struct {
	OffsetMs   int64
	LastSyncAt time.Time
	Synced     bool
	TTL        time.Duration
}

type Option func(*Synchronizer)

func WithNow(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Synchronizer) {
		if log != nil {
			s.log = log
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Synchronizer) {
		s.observer = o
	}
}

// WithTimeout bounds a single refresh. The refresh is detached from the
// cancellation of the caller that started it, so it needs its own limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPath sets the time endpoint path reported in sync errors.
func WithPath(path string) Option {
	return func(s *Synchronizer) {
		s.path = path
	}
}

type Synchronizer struct {
	primary  Source
	fallback Source
	ttl      time.Duration
	now      func() time.Time
	log      *logger.Logger
	observer Observer
	path     string
	timeout  time.Duration

	group singleflight.Group

	mu       sync.RWMutex
	offsetMs int64
	lastSync time.Time
	synced   bool
}

// New builds a synchronizer. fallback may be nil; ttl <= 0 means DefaultTTL.
func New(primary, fallback Source, ttl time.Duration, opts ...Option) *Synchronizer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Synchronizer{
		primary:  primary,
		fallback: fallback,
		ttl:      ttl,
		now:      time.Now,
		log:      logger.Nop(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) Offset() Offset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Offset{
		OffsetMs:   s.offsetMs,
		LastSyncAt: s.lastSync,
		Synced:     s.synced,
		TTL:        s.ttl,
	}
}

// Sync refreshes the offset. Initial and TTL triggers skip the refresh
// when another caller has just made the offset fresh; reactive and manual
// triggers always reach the source. Callers arriving while a refresh of
// the same kind is in flight share its result. Cancelling ctx releases
// this caller only: the shared refresh keeps running for the others.
func (s *Synchronizer) Sync(ctx context.Context, trigger Trigger) error {
	key := "forced"
	if trigger == TriggerInitial || trigger == TriggerTTL {
		key = "stale"
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if key == "stale" && !s.stale() {
			return nil, nil
		}

		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return nil, s.refresh(refreshCtx, trigger)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureFresh syncs when no sync happened yet or the last one is older
// than the TTL.
func (s *Synchronizer) EnsureFresh(ctx context.Context) error {
	s.mu.RLock()
	synced := s.synced
	s.mu.RUnlock()

	if !synced {
		return s.Sync(ctx, TriggerInitial)
	}
	if s.stale() {
		return s.Sync(ctx, TriggerTTL)
	}
	return nil
}

// Timestamp returns the server-adjusted local time in milliseconds.
func (s *Synchronizer) Timestamp(ctx context.Context) (string, error) {
	if err := s.EnsureFresh(ctx); err != nil {
		return "", err
	}

	s.mu.RLock()
	offset := s.offsetMs
	s.mu.RUnlock()

	return strconv.FormatInt(s.now().UnixMilli()+offset, 10), nil
}

func (s *Synchronizer) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.synced {
		return true
	}
	return s.now().Sub(s.lastSync) > s.ttl
}

func (s *Synchronizer) refresh(ctx context.Context, trigger Trigger) error {
	entry := s.log.WithComponent("timesync").WithField("trigger", string(trigger))

	source := "primary"
	sample, primaryErr := s.ask(ctx, s.primary)
	if primaryErr != nil {
		entry.WithError(primaryErr).Debug("Основной источник времени недоступен, пробуем заголовок Date.")

		var fallbackErr error
		source = "fallback"
		sample, fallbackErr = s.ask(ctx, s.fallback)
		if fallbackErr != nil {
			entry.WithError(fallbackErr).Error("Не удалось получить серверное время.")
			syncErr := apierr.HTTP(http.StatusOK, http.MethodGet, s.path, "не удалось получить серверное время (time endpoint + заголовок Date)", "")
			syncErr.Err = errors.Join(primaryErr, fallbackErr)
			return syncErr
		}
	}

	offset := sample.ServerMs - sample.SentAt.UnixMilli()

	s.mu.Lock()
	s.offsetMs = offset
	s.lastSync = s.now()
	s.synced = true
	s.mu.Unlock()

	entry.WithFields(logrus.Fields{
		"source":    source,
		"offset_ms": offset,
	}).Debug("Смещение серверного времени обновлено.")

	if s.observer != nil {
		s.observer.ObserveSync(string(trigger), source, offset)
	}
	return nil
}

// ask queries src and fills in the send time when the source left it out.
func (s *Synchronizer) ask(ctx context.Context, src Source) (Sample, error) {
	if src == nil {
		return Sample{}, errors.New("источник времени не задан")
	}

	askedAt := s.now()
	sample, err := src.ServerTime(ctx)
	if err != nil {
		return Sample{}, err
	}
	if sample.SentAt.IsZero() {
		sample.SentAt = askedAt
	}
	return sample, nil
}
