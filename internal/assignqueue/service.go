package assignqueue

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	logx "rolecall/pkg/logx"
)

// Assignment is the intent "this user subscribes to this event but does not
// hold its role". Owned by the queue once enqueued.
type Assignment struct {
	GuildID   string
	EventID   string
	EventName string
	UserID    string
	Username  string
	RoleID    string
}

// Granter performs the actual role grant.
type Granter interface {
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
}

type Config struct {
	QueueSize  int
	RatePerSec int
	RetryMax   int
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	return c
}

// Service drains queued assignments with a single worker goroutine.
type Service struct {
	granter Granter
	log     logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	queue chan Assignment
	kick  chan struct{}

	stopCh   chan struct{}
	stopDone chan struct{}
}

func New(cfg Config, granter Granter, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		granter: granter,
		log:     log,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		queue:   make(chan Assignment, cfg.QueueSize),
		kick:    make(chan struct{}, 1),
	}
}

// Apply updates the rate limit and retry budget. Queue size is fixed at New.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.RatePerSec = cfg.RatePerSec
	s.cfg.RetryMax = cfg.RetryMax
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Enqueue adds an assignment without blocking. When the buffer is full the
// assignment is dropped with a warning; the next reconciliation sweep will
// re-discover the gap.
func (s *Service) Enqueue(a Assignment) bool {
	select {
	case s.queue <- a:
		return true
	default:
		s.log.Warn("assignment queue full, dropping",
			logx.String("event", a.EventName), logx.String("event_id", a.EventID),
			logx.String("user", a.Username), logx.String("user_id", a.UserID))
		return false
	}
}

// Kick signals that queued work may be ready to drain. Never blocks;
// repeated kicks coalesce.
func (s *Service) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Pending reports the number of queued assignments.
func (s *Service) Pending() int { return len(s.queue) }

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.stopDone = make(chan struct{})
	stopCh, stopDone := s.stopCh, s.stopDone
	s.mu.Unlock()

	go func() {
		defer close(stopDone)
		s.worker(ctx, stopCh)
	}()
}

func (s *Service) Stop() {
	s.mu.Lock()
	stopCh, stopDone := s.stopCh, s.stopDone
	s.stopCh, s.stopDone = nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-stopDone
}
