package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tailortalk/tailortalk/internal/dialog"
	"github.com/tailortalk/tailortalk/internal/health"
	"github.com/tailortalk/tailortalk/internal/httpapi"
	"github.com/tailortalk/tailortalk/internal/session"
	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// This file is the App's session surface: the Chat implementation the
// front ends drive, the idle-session sweeper, and the readiness checks
// derived from the session store.

var _ httpapi.Chat = (*App)(nil)

// Turn applies one user utterance to the named session. The session
// store serializes turns per session; mutations are discarded when the
// machine returns an error, so a failed turn never corrupts state.
func (a *App) Turn(ctx context.Context, sessionID, message string) (dialog.Reply, error) {
	a.machineMu.RLock()
	machine := a.machine
	a.machineMu.RUnlock()

	start := time.Now()
	var reply dialog.Reply
	var intentName, phase string
	err := a.store.Update(ctx, sessionID, func(st *dialog.State) error {
		r, err := machine.HandleTurn(ctx, st, message)
		if err != nil {
			return err
		}
		reply = r
		intentName = st.Intent.String()
		phase = st.Phase.String()
		return nil
	})
	a.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return dialog.Reply{}, fmt.Errorf("app: turn %q: %w", sessionID, err)
	}
	a.metrics.RecordTurn(ctx, intentName, phase, reply.Degraded)
	return reply, nil
}

// EndSession discards the named session's state.
func (a *App) EndSession(ctx context.Context, sessionID string) error {
	if err := a.store.End(ctx, sessionID); err != nil {
		return fmt.Errorf("app: end session %q: %w", sessionID, err)
	}
	return nil
}

// sweepLoop periodically drops idle sessions and keeps the
// active-session gauge in step with the store.
func (a *App) sweepLoop(ctx context.Context) {
	ttl := a.cfg.Session.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	interval := a.cfg.Session.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastCount int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.Sweep(ctx, ttl)
			if err != nil {
				a.log.Warn("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				a.log.Debug("swept idle sessions", "count", n)
			}
			if counter, ok := a.store.(interface{ Len() int }); ok {
				cur := int64(counter.Len())
				a.metrics.ActiveSessions.Add(ctx, cur-lastCount)
				lastCount = cur
			}
		}
	}
}

// readinessChecks builds the /readyz checker list from the wired
// subsystems.
func (a *App) readinessChecks() []health.Checker {
	var checks []health.Checker
	if pg, ok := a.store.(*session.PostgresStore); ok {
		checks = append(checks, health.Checker{
			Name:  "sessions",
			Check: pg.Healthy,
		})
	}
	checks = append(checks, health.Checker{
		Name: "calendar",
		Check: func(ctx context.Context) error {
			now := time.Now()
			_, err := a.providers.Calendar.ListEvents(ctx, calendar.TimeRange{From: now, To: now.Add(time.Minute)})
			return err
		},
	})
	return checks
}
