package assignqueue

import (
	"context"
	"time"

	logx "rolecall/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}) {
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-s.kick:
			s.drain(ctx, stopCh)
		}
	}
}

// drain grants everything currently queued, one at a time. A failed grant is
// logged and skipped; it never blocks the items behind it.
func (s *Service) drain(ctx context.Context, stopCh <-chan struct{}) {
	start := time.Now()
	var done, failed int
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case a := <-s.queue:
			if err := s.grantOne(ctx, a); err != nil {
				failed++
			} else {
				done++
			}
		default:
			if done > 0 || failed > 0 {
				s.log.Info("assignment queue drained",
					logx.Int("granted", done), logx.Int("failed", failed),
					logx.Duration("took", time.Since(start)))
			}
			return
		}
	}
}

func (s *Service) grantOne(ctx context.Context, a Assignment) error {
	// Snapshot mutable dependencies to avoid races with Apply().
	s.mu.Lock()
	lim := s.limiter
	retry := s.cfg.RetryMax
	s.mu.Unlock()

	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}

	var last error
	for i := 0; i <= retry; i++ {
		err := s.granter.AddMemberRole(ctx, a.GuildID, a.UserID, a.RoleID)
		if err == nil {
			s.log.Debug("granted event role",
				logx.String("event", a.EventName), logx.String("event_id", a.EventID),
				logx.String("user", a.Username), logx.String("user_id", a.UserID),
				logx.String("role_id", a.RoleID))
			return nil
		}
		last = err
		if i == retry {
			break
		}
		delay := time.Duration(200+100*i) * time.Millisecond
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return ctx.Err()
		case <-tmr.C:
		}
	}
	s.log.Warn("role grant failed",
		logx.String("event", a.EventName), logx.String("event_id", a.EventID),
		logx.String("user", a.Username), logx.String("user_id", a.UserID),
		logx.String("role_id", a.RoleID), logx.Err(last))
	return last
}
