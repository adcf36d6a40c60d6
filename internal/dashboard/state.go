// Package dashboard holds the dashboard selection state and the controller
// driving it.
package dashboard

import (
	"errors"
	"slices"

	"github.com/samber/lo"

	"race-telemetry-dashboard/internal/models"
)

// messages shown in the error banner
const (
	MsgSelectRace        = "Please select a race"
	MsgSelectDriver      = "Please select at least one driver"
	MsgDriversFailed     = "Failed to load drivers"
	MsgLoadFailed        = "Failed to load dashboard data"
	MsgTelemetryFailed   = "Failed to update telemetry chart"
	MsgRacesFailed       = "Failed to initialize dashboard"
	msgUnavailableFormat = "Unable to connect to API. Please ensure the racing API is reachable at %s."
)

// AutoSelectCount is the number of drivers selected after a driver list was loaded.
const AutoSelectCount = 3

var (
	ErrNoRace   = errors.New(MsgSelectRace)
	ErrNoDriver = errors.New(MsgSelectDriver)
)

// Banner is the error message currently shown. ID identifies the raise.
type Banner struct {
	ID      uint64 `json:"id"`
	Message string `json:"message"`
}

// State is the dashboard selection state.
type State struct {
	RaceID   string         `json:"raceId"`
	Session  models.Session `json:"session"`
	Drivers  []string       `json:"drivers"`  // available drivers, API order
	Selected []string       `json:"selected"` // selected drivers, selection order
	Lap      int            `json:"lap"`
	Laps     []int          `json:"laps"` // available laps, ascending
	Metric   models.Metric  `json:"metric"`
	Loading  bool           `json:"loading"`
	Error    *Banner        `json:"error,omitempty"`
}

func Initial() State {
	return State{
		Session: models.SessionRace,
		Lap:     1,
		Metric:  models.MetricSpeed,
	}
}

// Event is a state transition input.
type Event interface{ event() }

type (
	RaceSelected    struct{ RaceID string }
	SessionSelected struct{ Session models.Session }
	DriversLoaded   struct{ Drivers []string }
	DriversSelected struct{ Drivers []string }
	LapSelected     struct{ Lap int }
	MetricSelected  struct{ Metric models.Metric }
	LoadStarted     struct{}
	LoadSucceeded   struct{ Laps []int }
	ErrorRaised     struct{ Banner Banner }
	ErrorDismissed  struct{ ID uint64 }
)

func (RaceSelected) event()    {}
func (SessionSelected) event() {}
func (DriversLoaded) event()   {}
func (DriversSelected) event() {}
func (LapSelected) event()     {}
func (MetricSelected) event()  {}
func (LoadStarted) event()     {}
func (LoadSucceeded) event()   {}
func (ErrorRaised) event()     {}
func (ErrorDismissed) event()  {}

// Reduce computes the state following ev. It does not modify s.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case RaceSelected:
		s = cleared(s)
		s.RaceID = e.RaceID
	case SessionSelected:
		s = cleared(s)
		s.Session = e.Session
	case DriversLoaded:
		s.Drivers = slices.Clone(e.Drivers)
		s.Selected = slices.Clone(e.Drivers[:min(AutoSelectCount, len(e.Drivers))])
	case DriversSelected:
		s.Selected = lo.Uniq(lo.Filter(e.Drivers, func(id string, _ int) bool { return id != "" }))
		s.Loading = false
	case LapSelected:
		s.Lap = max(e.Lap, 1)
	case MetricSelected:
		s.Metric = e.Metric
	case LoadStarted:
		s.Error = nil
		s.Loading = true
	case LoadSucceeded:
		s.Laps = slices.Clone(e.Laps)
		if len(s.Laps) > 0 && !slices.Contains(s.Laps, s.Lap) {
			s.Lap = s.Laps[0]
		}
		s.Loading = false
	case ErrorRaised:
		b := e.Banner
		s.Error = &b
		s.Loading = false
	case ErrorDismissed:
		if s.Error != nil && s.Error.ID == e.ID {
			s.Error = nil
		}
	}
	return s
}

// cleared drops everything derived from the previous race or session.
func cleared(s State) State {
	s.Drivers = nil
	s.Selected = nil
	s.Laps = nil
	s.Loading = false
	return s
}

// Validate checks the preconditions of a dashboard load.
func Validate(s State) error {
	if s.RaceID == "" {
		return ErrNoRace
	}
	if len(s.Selected) == 0 {
		return ErrNoDriver
	}
	return nil
}

// AvailableLaps returns the union of lap numbers of all drivers, ascending.
func AvailableLaps(resp models.LapsResponse) []int {
	var ret []int
	for _, laps := range resp.All() {
		ret = append(ret, lo.Map(laps, func(l models.Lap, _ int) int { return l.LapNumber })...)
	}
	ret = lo.Uniq(ret)
	slices.Sort(ret)
	return ret
}
