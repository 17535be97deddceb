// Package driver advances a wired state through its simulated time
// period cycle by cycle: staging and committing next-tagged working
// copies, re-evaluating the observed fields, and reporting each cycle
// through the context logger.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/karst-sim/karst/internal/ctxlog"
	"github.com/karst-sim/karst/internal/evaluator"
	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
	"github.com/karst-sim/karst/internal/state"
	"github.com/karst-sim/karst/internal/vector"
)

// requester is the identity the driver presents to Update, so its
// memoization stream is distinct from every evaluator's.
var requester = keys.KeyTag{Key: "driver"}

// AdvanceFunc is the per-cycle slot for external integration code. It
// runs after the next-tagged working copies are staged at tnew and
// before they are committed, and may write them through the record
// store.
type AdvanceFunc func(ctx context.Context, s *state.State, told, tnew float64) error

// Config carries the run parameters, usually taken from a scenario's
// time block.
type Config struct {
	Start    float64
	Stop     float64
	Step     float64
	Observed []keys.KeyTag
	Advance  AdvanceFunc
}

// Driver runs one state through one time period.
type Driver struct {
	cfg Config
	s   *state.State
}

// New validates the run parameters and binds the driver to a state.
func New(s *state.State, cfg Config) (*Driver, error) {
	if cfg.Step <= 0 {
		return nil, fmt.Errorf("driver: step must be positive, got %v", cfg.Step)
	}
	if cfg.Stop < cfg.Start {
		return nil, fmt.Errorf("driver: stop %v precedes start %v", cfg.Stop, cfg.Start)
	}
	return &Driver{cfg: cfg, s: s}, nil
}

// Run drives the state from start to stop. The state must already be
// set up and initialized. The final partial step is clamped so the run
// lands exactly on stop.
func (d *Driver) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s := d.s

	if err := s.RequireTimeTag(keys.Next); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	working := d.commitKeys()

	s.SetPosition(state.TimePeriodStart)
	if err := s.SetTime(keys.Default, d.cfg.Start); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if err := d.observe(logger); err != nil {
		return err
	}

	t := d.cfg.Start
	for t < d.cfg.Stop {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("driver: run canceled at t=%v: %w", t, err)
		}

		dt := min(d.cfg.Step, d.cfg.Stop-t)
		tnew := t + dt

		if err := d.stage(working, tnew); err != nil {
			return err
		}
		if d.cfg.Advance != nil {
			if err := d.cfg.Advance(ctx, s, t, tnew); err != nil {
				return fmt.Errorf("driver: advancing %v -> %v: %w", t, tnew, err)
			}
		}
		if err := d.commit(working, tnew); err != nil {
			return err
		}

		if tnew >= d.cfg.Stop {
			s.SetPosition(state.TimePeriodEnd)
		} else {
			s.SetPosition(state.TimePeriodInside)
		}
		t = tnew

		if err := d.observe(logger); err != nil {
			return err
		}
	}

	cycle, err := s.Cycle()
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	logger.Info("Run complete.", "cycles", cycle, "time", t)
	return nil
}

// commitKeys discovers the fields that carry a next-tagged working
// copy. The clock records are managed directly and excluded.
func (d *Driver) commitKeys() []keys.Key {
	var out []keys.Key
	seen := make(map[keys.Key]bool)
	_ = d.s.Records(func(key keys.Key, tag keys.Tag, r *record.Record) error {
		if tag != keys.Next || seen[key] {
			return nil
		}
		if key == state.KeyTime || key == state.KeyCycle {
			return nil
		}
		seen[key] = true
		out = append(out, key)
		return nil
	})
	return out
}

// stage primes every working copy with the current committed value and
// moves the next-tag clock to the target time.
func (d *Driver) stage(working []keys.Key, tnew float64) error {
	for _, key := range working {
		if err := d.s.Assign(key, keys.Next, keys.Default); err != nil {
			return fmt.Errorf("driver: staging %s: %w", key, err)
		}
	}
	if err := d.s.SetTime(keys.Next, tnew); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	return nil
}

// commit adopts the working copies as the new committed values, tells
// the graph which primaries moved, and advances the clock and cycle
// count.
func (d *Driver) commit(working []keys.Key, tnew float64) error {
	for _, key := range working {
		if err := d.s.Assign(key, keys.Default, keys.Next); err != nil {
			return fmt.Errorf("driver: committing %s: %w", key, err)
		}
		if !d.s.HasEvaluator(key, keys.Default) {
			continue
		}
		e, err := d.s.GetEvaluator(key, keys.Default)
		if err != nil {
			return fmt.Errorf("driver: %w", err)
		}
		if e.Kind() != state.KindPrimary {
			continue
		}
		if err := evaluator.MarkChanged(d.s, key, keys.Default); err != nil {
			return fmt.Errorf("driver: %w", err)
		}
	}
	if err := d.s.SetTime(keys.Default, tnew); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if err := d.s.AdvanceCycle(); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	return nil
}

// observe updates every observed field at the current time and logs
// the cycle. A field whose record has visualization off is still
// updated but left out of the log line.
func (d *Driver) observe(logger *slog.Logger) error {
	cycle, err := d.s.Cycle()
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	t, err := d.s.Time(keys.Default)
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	attrs := []any{"cycle", cycle, "time", t, "position", d.s.Position().String()}
	for _, kt := range d.cfg.Observed {
		e, err := d.s.RequireEvaluator(kt.Key, kt.Tag)
		if err != nil {
			return fmt.Errorf("driver: observed %s: %w", kt, err)
		}
		if _, err := e.Update(d.s, requester); err != nil {
			return fmt.Errorf("driver: observed %s: %w", kt, err)
		}
		r, err := d.s.Record(kt.Key, kt.Tag)
		if err != nil {
			return fmt.Errorf("driver: observed %s: %w", kt, err)
		}
		if !r.Vis() {
			continue
		}
		attrs = append(attrs, kt.String(), d.describe(kt))
	}
	logger.Info("Cycle observed.", attrs...)
	return nil
}

// describe renders an observed value for the cycle log: scalars
// directly, vectors through their component statistics.
func (d *Driver) describe(kt keys.KeyTag) any {
	set, err := d.s.RecordSet(kt.Key)
	if err != nil {
		return err.Error()
	}
	switch set.Type() {
	case reflect.TypeFor[float64]():
		v, err := state.Get[float64](d.s, kt.Key, kt.Tag)
		if err != nil {
			return err.Error()
		}
		return *v
	case reflect.TypeFor[vector.Vector]():
		v, err := state.Get[vector.Vector](d.s, kt.Key, kt.Tag)
		if err != nil {
			return err.Error()
		}
		return v.Stats()
	default:
		return fmt.Sprintf("<%s>", set.Type())
	}
}
