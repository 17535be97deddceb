package state

import (
	"fmt"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
)

// Time and cycle are ordinary registry fields, not a separate
// subsystem. Time carries one record per tag in play, so provisional
// steps can hold their own clock.
const (
	KeyTime  keys.Key = "time"
	KeyCycle keys.Key = "cycle"
)

// Position locates the simulation within the current time period.
type Position int

const (
	TimePeriodStart Position = iota
	TimePeriodInside
	TimePeriodEnd
)

func (p Position) String() string {
	switch p {
	case TimePeriodStart:
		return "start"
	case TimePeriodInside:
		return "inside"
	case TimePeriodEnd:
		return "end"
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// RequireTimeTag ensures the time record at tag exists and is
// materialized. Time records materialize eagerly rather than waiting
// for Setup, since the clock is meaningful before the graph is.
func (s *State) RequireTimeTag(tag keys.Tag) error {
	if err := Require[float64](s, KeyTime, tag, ""); err != nil {
		return err
	}
	return s.data[KeyTime].CreateData()
}

// Time returns the clock value at tag.
func (s *State) Time(tag keys.Tag) (float64, error) {
	t, err := Get[float64](s, KeyTime, tag)
	if err != nil {
		return 0, err
	}
	return *t, nil
}

// SetTime sets the clock value at tag.
func (s *State) SetTime(tag keys.Tag, t float64) error {
	set, err := s.RecordSet(KeyTime)
	if err != nil {
		return err
	}
	return record.Store(set, tag, t)
}

// AdvanceTime moves the clock at tag forward by dt.
func (s *State) AdvanceTime(tag keys.Tag, dt float64) error {
	t, err := s.Time(tag)
	if err != nil {
		return err
	}
	return s.SetTime(tag, t+dt)
}

// Cycle returns the step counter.
func (s *State) Cycle() (int, error) {
	n, err := Get[int](s, KeyCycle, keys.Default)
	if err != nil {
		return 0, err
	}
	return *n, nil
}

// SetCycle sets the step counter.
func (s *State) SetCycle(n int) error {
	set, err := s.RecordSet(KeyCycle)
	if err != nil {
		return err
	}
	return record.Store(set, keys.Default, n)
}

// AdvanceCycle increments the step counter.
func (s *State) AdvanceCycle() error {
	n, err := s.Cycle()
	if err != nil {
		return err
	}
	return s.SetCycle(n + 1)
}

// Position returns where the simulation stands in the current time
// period.
func (s *State) Position() Position { return s.position }

// SetPosition records where the simulation stands in the current
// time period.
func (s *State) SetPosition(p Position) { s.position = p }
