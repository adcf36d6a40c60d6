package dashboard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"race-telemetry-dashboard/internal/models"
)

func TestReduce(t *testing.T) {
	loaded := Initial()
	loaded.RaceID = "r1"
	loaded.Drivers = []string{"1", "44"}
	loaded.Selected = []string{"1"}
	loaded.Laps = []int{1, 2}
	loaded.Lap = 2
	loaded.Loading = true

	tests := []struct {
		name  string
		start State
		event Event
		want  func(s State) State
	}{
		{
			name:  "race selection clears drivers and laps",
			start: loaded,
			event: RaceSelected{RaceID: "r2"},
			want: func(s State) State {
				s.RaceID = "r2"
				s.Drivers, s.Selected, s.Laps = nil, nil, nil
				s.Loading = false
				return s
			},
		},
		{
			name:  "session selection keeps the race",
			start: loaded,
			event: SessionSelected{Session: models.SessionQualifying},
			want: func(s State) State {
				s.Session = models.SessionQualifying
				s.Drivers, s.Selected, s.Laps = nil, nil, nil
				s.Loading = false
				return s
			},
		},
		{
			name:  "driver list auto selects the first three in API order",
			start: Initial(),
			event: DriversLoaded{Drivers: []string{"5", "44", "1", "16"}},
			want: func(s State) State {
				s.Drivers = []string{"5", "44", "1", "16"}
				s.Selected = []string{"5", "44", "1"}
				return s
			},
		},
		{
			name:  "short driver list selects all",
			start: Initial(),
			event: DriversLoaded{Drivers: []string{"16"}},
			want: func(s State) State {
				s.Drivers = []string{"16"}
				s.Selected = []string{"16"}
				return s
			},
		},
		{
			name:  "driver selection drops empty and duplicate ids",
			start: Initial(),
			event: DriversSelected{Drivers: []string{"44", "", "1", "44"}},
			want: func(s State) State {
				s.Selected = []string{"44", "1"}
				return s
			},
		},
		{
			name:  "driver selection ends a running load",
			start: Reduce(Initial(), LoadStarted{}),
			event: DriversSelected{Drivers: []string{"1"}},
			want: func(s State) State {
				s.Selected = []string{"1"}
				s.Loading = false
				return s
			},
		},
		{
			name:  "invalid lap falls back to one",
			start: loaded,
			event: LapSelected{Lap: 0},
			want: func(s State) State {
				s.Lap = 1
				return s
			},
		},
		{
			name:  "load keeps a still available lap",
			start: loaded,
			event: LoadSucceeded{Laps: []int{1, 2, 3}},
			want: func(s State) State {
				s.Laps = []int{1, 2, 3}
				s.Loading = false
				return s
			},
		},
		{
			name:  "load falls back to the smallest lap",
			start: loaded,
			event: LoadSucceeded{Laps: []int{4, 5}},
			want: func(s State) State {
				s.Laps = []int{4, 5}
				s.Lap = 4
				s.Loading = false
				return s
			},
		},
		{
			name:  "error clears loading",
			start: loaded,
			event: ErrorRaised{Banner: Banner{ID: 3, Message: "boom"}},
			want: func(s State) State {
				s.Error = &Banner{ID: 3, Message: "boom"}
				s.Loading = false
				return s
			},
		},
		{
			name:  "dismissing another banner is ignored",
			start: Reduce(Initial(), ErrorRaised{Banner: Banner{ID: 2, Message: "new"}}),
			event: ErrorDismissed{ID: 1},
			want:  func(s State) State { return s },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(tt.start, tt.event)
			if diff := cmp.Diff(tt.want(tt.start), got); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReduceDoesNotAlias(t *testing.T) {
	ids := []string{"1", "11", "44", "63"}
	s := Reduce(Initial(), DriversLoaded{Drivers: ids})
	ids[0] = "changed"
	assert.Equal(t, []string{"1", "11", "44"}, s.Selected)
	assert.Equal(t, "1", s.Drivers[0])
}

func TestValidate(t *testing.T) {
	s := Initial()
	assert.ErrorIs(t, Validate(s), ErrNoRace)
	assert.EqualError(t, Validate(s), "Please select a race")

	s.RaceID = "r1"
	assert.ErrorIs(t, Validate(s), ErrNoDriver)
	assert.EqualError(t, Validate(s), "Please select at least one driver")

	s.Selected = []string{"1"}
	assert.NoError(t, Validate(s))
}

func TestAvailableLaps(t *testing.T) {
	var resp models.LapsResponse
	resp.Set("A", []models.Lap{{LapNumber: 3}, {LapNumber: 1}, {LapNumber: 2}})
	resp.Set("B", []models.Lap{{LapNumber: 2}, {LapNumber: 3}, {LapNumber: 4}})

	assert.Equal(t, []int{1, 2, 3, 4}, AvailableLaps(resp))
	assert.Empty(t, AvailableLaps(models.LapsResponse{}))
}
