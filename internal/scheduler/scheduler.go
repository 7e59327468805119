// Package scheduler drives auctions across their start and end boundaries.
//
// A Scheduler keeps at most one timer per (auction, boundary). Start runs a
// catch-up pass for boundaries missed while the process was down; after that
// timers fire Open and Close on the engine, which are idempotent, so a late
// or repeated firing is harmless.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"auction/internal/logger"
	"auction/internal/models"
)

type Transitioner interface {
	Open(ctx context.Context, auctionID string) error
	Close(ctx context.Context, auctionID string) error
}

type AuctionSource interface {
	ListUnclosed(ctx context.Context) ([]models.Auction, error)
}

type Kind string

const (
	KindOpen  Kind = "open"
	KindClose Kind = "close"
)

// Pending describes one armed timer.
type Pending struct {
	AuctionID string    `json:"auction_id"`
	Kind      Kind      `json:"kind"`
	At        time.Time `json:"at"`
	Attempt   int       `json:"attempt"`
}

type Option func(*Scheduler)

// WithRetry sets how long to wait before retrying a failed transition and
// how many retries are allowed.
func WithRetry(delay time.Duration, maxRetries int) Option {
	return func(s *Scheduler) {
		s.retryDelay = delay
		s.maxRetries = maxRetries
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

type timerKey struct {
	auctionID string
	kind      Kind
}

type entry struct {
	timer   *time.Timer
	at      time.Time
	attempt int
	seq     uint64
}

type Scheduler struct {
	engine     Transitioner
	source     AuctionSource
	retryDelay time.Duration
	maxRetries int
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timers  map[timerKey]*entry
	seq     uint64
	stopped bool
}

func New(engine Transitioner, source AuctionSource, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		engine:     engine,
		source:     source,
		retryDelay: 5 * time.Second,
		maxRetries: 3,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		timers:     make(map[timerKey]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start closes auctions whose end has passed, opens those inside their
// window, and arms timers for every boundary still ahead.
func (s *Scheduler) Start(ctx context.Context) error {
	auctions, err := s.source.ListUnclosed(ctx)
	if err != nil {
		return err
	}
	closed, opened := 0, 0
	for _, auction := range auctions {
		now := s.now()
		switch {
		case auction.CloseDue(now):
			if s.run(timerKey{auction.ID, KindClose}, 0) {
				closed++
			}
			continue
		case auction.OpenDue(now):
			if s.run(timerKey{auction.ID, KindOpen}, 0) {
				auction.Status = models.StatusRunning
				opened++
			}
		}
		s.Schedule(auction)
	}
	logger.Info("scheduler started", map[string]any{
		"auctions":   len(auctions),
		"caught_up":  closed,
		"opened":     opened,
		"timers":     len(s.Pending()),
		"retry":      s.retryDelay.String(),
		"maxRetries": s.maxRetries,
	})
	return nil
}

// Schedule arms the open and close timers of an auction, replacing any
// timers it already had. Boundaries already passed fire immediately.
func (s *Scheduler) Schedule(auction models.Auction) {
	if auction.Status == models.StatusClosed {
		s.Cancel(auction.ID)
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if auction.Status == models.StatusScheduled {
		// A pending retry of a failed open keeps its delay and attempt count.
		openKey := timerKey{auction.ID, KindOpen}
		if e, ok := s.timers[openKey]; !ok || e.attempt == 0 {
			s.armLocked(openKey, auction.StartAt, now, 0)
		}
	} else {
		s.stopLocked(timerKey{auction.ID, KindOpen})
	}
	s.armLocked(timerKey{auction.ID, KindClose}, auction.EndAt, now, 0)
}

// Cancel drops every timer of the auction.
func (s *Scheduler) Cancel(auctionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(timerKey{auctionID, KindOpen})
	s.stopLocked(timerKey{auctionID, KindClose})
}

// Pending lists armed timers ordered by firing time.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]Pending, 0, len(s.timers))
	for key, e := range s.timers {
		pending = append(pending, Pending{AuctionID: key.auctionID, Kind: key.kind, At: e.at, Attempt: e.attempt})
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].At.Equal(pending[j].At) {
			return pending[i].At.Before(pending[j].At)
		}
		if pending[i].AuctionID != pending[j].AuctionID {
			return pending[i].AuctionID < pending[j].AuctionID
		}
		return pending[i].Kind > pending[j].Kind
	})
	return pending
}

// Stop disarms all timers and waits for in-flight transitions to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key := range s.timers {
		s.stopLocked(key)
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) armLocked(key timerKey, at, now time.Time, attempt int) {
	s.stopLocked(key)
	s.seq++
	seq := s.seq
	delay := at.Sub(now)
	if delay < 0 {
		delay = 0
	}
	e := &entry{at: at, attempt: attempt, seq: seq}
	e.timer = time.AfterFunc(delay, func() { s.fire(key, seq) })
	s.timers[key] = e
}

func (s *Scheduler) stopLocked(key timerKey) {
	if e, ok := s.timers[key]; ok {
		e.timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Scheduler) fire(key timerKey, seq uint64) {
	s.mu.Lock()
	e, ok := s.timers[key]
	if s.stopped || !ok || e.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	s.run(key, e.attempt)
}

// run performs the transition and reports whether it succeeded. A failure
// arms a retry unless retries are exhausted.
func (s *Scheduler) run(key timerKey, attempt int) bool {
	var err error
	switch key.kind {
	case KindOpen:
		err = s.engine.Open(s.ctx, key.auctionID)
	case KindClose:
		err = s.engine.Close(s.ctx, key.auctionID)
	}
	if err == nil {
		return true
	}
	fields := map[string]any{
		"auction_id": key.auctionID,
		"kind":       string(key.kind),
		"attempt":    attempt,
		"error":      err.Error(),
	}
	if s.ctx.Err() != nil {
		return false
	}
	if attempt >= s.maxRetries {
		logger.Error("auction transition failed, giving up", fields)
		return false
	}
	logger.Warn("auction transition failed, retrying", fields)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if _, replaced := s.timers[key]; replaced {
		return false
	}
	now := s.now()
	s.armLocked(key, now.Add(s.retryDelay), now, attempt+1)
	return false
}
