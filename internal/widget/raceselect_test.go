package widget

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"race-telemetry-dashboard/internal/models"
)

var races = []models.Race{
	{RaceID: "2023_bahrain", Name: "Bahrain Grand Prix", Circuit: "Sakhir", Date: "2023-03-05"},
	{RaceID: "2023_monza", Name: "Italian Grand Prix", Circuit: "Monza", Date: "2023-09-03"},
}

func TestOptionsPlaceholderFirst(t *testing.T) {
	rs := NewRaceSelect("race")
	rs.UpdateRaces(races)

	assert.Equal(t, []Option{
		{Value: "", Text: "Choose a race...", Disabled: true, Selected: true},
		{Value: "2023_bahrain", Text: "Bahrain Grand Prix (Sakhir)"},
		{Value: "2023_monza", Text: "Italian Grand Prix (Monza)"},
	}, rs.Options())
	assert.Empty(t, rs.SelectedRace())
}

func TestSetSelectedRace(t *testing.T) {
	rs := NewRaceSelect("race")
	rs.UpdateRaces(races)

	require.NoError(t, rs.SetSelectedRace("2023_monza"))
	assert.Equal(t, "2023_monza", rs.SelectedRace())
	assert.True(t, rs.Options()[2].Selected)
	assert.False(t, rs.Options()[0].Selected)

	assert.ErrorIs(t, rs.SetSelectedRace(""), ErrPlaceholder)
	assert.ErrorIs(t, rs.SetSelectedRace("2022_monza"), ErrUnknownRace)
	assert.Equal(t, "2023_monza", rs.SelectedRace(), "rejected values keep the selection")

	rs.UpdateRaces(races[:1])
	assert.Empty(t, rs.SelectedRace(), "update resets to the placeholder")
}

func TestReset(t *testing.T) {
	rs := NewRaceSelect("race")
	rs.UpdateRaces(races)
	var calls int
	rs.OnChange(func(context.Context, string) error {
		calls++
		return nil
	})
	require.NoError(t, rs.HandleChange(context.Background(), "2023_monza"))

	rs.Reset()
	assert.Empty(t, rs.SelectedRace())
	assert.True(t, rs.Options()[0].Selected)
	assert.False(t, rs.Options()[2].Selected)
	assert.Equal(t, 1, calls, "reset is not announced")
}

func TestHandleChangeNotifies(t *testing.T) {
	rs := NewRaceSelect("race")
	rs.UpdateRaces(races)

	var got []string
	rs.OnChange(func(_ context.Context, id string) error {
		got = append(got, id)
		return nil
	})
	rs.OnChange(func(_ context.Context, id string) error {
		return errors.New("listener failed")
	})

	err := rs.HandleChange(context.Background(), "2023_bahrain")
	assert.EqualError(t, err, "listener failed")
	assert.Equal(t, []string{"2023_bahrain"}, got)

	assert.ErrorIs(t, rs.HandleChange(context.Background(), ""), ErrPlaceholder)
	assert.Equal(t, []string{"2023_bahrain"}, got, "placeholder is never announced")
}

func TestHTML(t *testing.T) {
	rs := NewRaceSelect("race")
	rs.UpdateRaces([]models.Race{{RaceID: "r<1>", Name: "A & B", Circuit: "C"}})

	out, err := rs.HTML()
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `<label for="race">Race:</label>`)
	assert.Contains(t, html, `<option value="" disabled selected>Choose a race...</option>`)
	assert.Contains(t, html, `A &amp; B (C)`)
	assert.Contains(t, html, `value="r&lt;1&gt;"`)
	assert.Contains(t, html, "Select a race to analyze")
}
