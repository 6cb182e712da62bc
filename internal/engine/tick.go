// Package engine provides the turn pipeline that advances a civilization
// one season at a time, and the host loop that drives it.
package engine

import (
	"context"
	"log/slog"
	"time"
)

// Clock drives a Simulation forward one turn per interval.
type Clock struct {
	Sim      *Simulation
	Speed    float64       // Multiplier: 1.0 = one turn per Interval, 0 = paused
	Interval time.Duration // Base turn interval; 0 runs turns back to back
	MaxTurns uint64        // Stop after this many turns (0 = until cancelled)

	// Callbacks, set during setup.
	OnTurn func(turn uint64, r TurnReport) // Every turn
	OnYear func(turn uint64, year int)     // Whenever a new year begins
}

// NewClock creates a clock for sim with default settings.
func NewClock(sim *Simulation) *Clock {
	return &Clock{
		Sim:      sim,
		Speed:    1.0,
		Interval: time.Second,
	}
}

// Run plays turns until MaxTurns is reached or ctx is done. It returns
// ctx.Err() when cancelled and nil otherwise.
func (c *Clock) Run(ctx context.Context) error {
	slog.Info("simulation clock started",
		"turn", c.Sim.CurrentTurn(),
		"speed", c.Speed,
		"interval", c.Interval,
		"max_turns", c.MaxTurns,
	)

	played := uint64(0)
	for c.MaxTurns == 0 || played < c.MaxTurns {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation clock stopped", "turn", c.Sim.CurrentTurn(), "reason", err)
			return err
		}

		if c.Speed <= 0 {
			// Paused: sleep briefly and check again.
			if err := sleep(ctx, 100*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		c.step()
		played++

		// Sleep for the remainder of the interval, adjusted for speed.
		// The last turn returns at once.
		if c.Interval > 0 && (c.MaxTurns == 0 || played < c.MaxTurns) {
			elapsed := time.Since(start)
			target := time.Duration(float64(c.Interval) / c.Speed)
			if elapsed < target {
				if err := sleep(ctx, target-elapsed); err != nil {
					return err
				}
			}
		}
	}

	slog.Info("simulation clock finished", "turn", c.Sim.CurrentTurn())
	return nil
}

// step plays one turn and fires callbacks.
func (c *Clock) step() {
	report := c.Sim.Step()
	turn := c.Sim.CurrentTurn()

	if c.OnTurn != nil {
		c.OnTurn(turn, report)
	}
	// The turn played in Autumn rolls the calendar into Winter of a new year.
	if report.Season == SeasonAutumn && c.OnYear != nil {
		c.OnYear(turn, report.Year+1)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
