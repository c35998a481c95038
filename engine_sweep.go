package goShare

import (
	"context"
	"time"
)

// sweeper is implemented by stores that only expire entries lazily, such
// as session.MemoryLedger and the in-memory OTP store.
type sweeper interface {
	Sweep() int
}

// Sweep drops expired refresh records and spent reset challenges from the
// stores that need explicit cleanup and returns how many were removed.
// Redis-backed stores expire on their own and are skipped.
func (e *Engine) Sweep(ctx context.Context) int {
	removed := 0
	if s, ok := e.ledger.(sweeper); ok {
		removed += s.Sweep()
	}
	if s, ok := e.otpStore.(sweeper); ok {
		removed += s.Sweep()
	}
	if removed > 0 {
		e.logger.Info(ctx, "expired session state swept", "removed", removed)
	}
	return removed
}

// RunSweeper calls Sweep every Ledger.SweepInterval until ctx is done. It
// returns at once when the interval is zero or no store needs sweeping.
func (e *Engine) RunSweeper(ctx context.Context) {
	interval := e.config.Ledger.SweepInterval
	if interval <= 0 || !e.needsSweep() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

func (e *Engine) needsSweep() bool {
	_, ledger := e.ledger.(sweeper)
	_, otp := e.otpStore.(sweeper)
	return ledger || otp
}
