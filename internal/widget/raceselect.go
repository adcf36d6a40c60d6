// Package widget contains reusable dashboard controls.
package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"race-telemetry-dashboard/internal/models"
)

const (
	RaceSelectLabel       = "Race:"
	RaceSelectPlaceholder = "Choose a race..."
	RaceSelectHelp        = "Select a race to analyze"
)

var (
	ErrPlaceholder = errors.New("the placeholder cannot be selected")
	ErrUnknownRace = errors.New("unknown race")
)

// Option is a rendered entry of the selection list.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Disabled bool   `json:"disabled,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// ChangeFunc is called with the chosen race id after the user changed the selection.
type ChangeFunc func(ctx context.Context, raceID string) error

// RaceSelect is the race selection control. The zero value is not usable, use NewRaceSelect.
type RaceSelect struct {
	mu        sync.RWMutex
	name      string
	races     []models.Race
	selected  string
	listeners []ChangeFunc
}

// NewRaceSelect creates a control posting its value as form field name.
func NewRaceSelect(name string) *RaceSelect {
	return &RaceSelect{name: name}
}

// UpdateRaces replaces the races and resets the selection to the placeholder.
func (rs *RaceSelect) UpdateRaces(races []models.Race) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.races = append([]models.Race(nil), races...)
	rs.selected = ""
}

func (rs *RaceSelect) Races() []models.Race {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]models.Race(nil), rs.races...)
}

// SelectedRace returns the committed race id, empty while the placeholder is shown.
func (rs *RaceSelect) SelectedRace() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.selected
}

// SetSelectedRace commits id without notifying listeners.
func (rs *RaceSelect) SetSelectedRace(id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.set(id)
}

// Reset shows the placeholder again without notifying listeners.
func (rs *RaceSelect) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.selected = ""
}

func (rs *RaceSelect) set(id string) error {
	if id == "" {
		return ErrPlaceholder
	}
	for _, r := range rs.races {
		if r.RaceID == id {
			rs.selected = id
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownRace, id)
}

func (rs *RaceSelect) OnChange(fn ChangeFunc) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.listeners = append(rs.listeners, fn)
}

// HandleChange processes a selection made by the user. Listeners are notified
// only if the value was committed; the first listener error is returned.
func (rs *RaceSelect) HandleChange(ctx context.Context, value string) error {
	rs.mu.Lock()
	if err := rs.set(value); err != nil {
		rs.mu.Unlock()
		return err
	}
	listeners := append([]ChangeFunc(nil), rs.listeners...)
	rs.mu.Unlock()

	var firstErr error
	for _, fn := range listeners {
		if err := fn(ctx, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Options returns the placeholder followed by one entry per race.
func (rs *RaceSelect) Options() []Option {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	ret := make([]Option, 0, len(rs.races)+1)
	ret = append(ret, Option{
		Value:    "",
		Text:     RaceSelectPlaceholder,
		Disabled: true,
		Selected: rs.selected == "",
	})
	for _, r := range rs.races {
		ret = append(ret, Option{
			Value:    r.RaceID,
			Text:     fmt.Sprintf("%s (%s)", r.Name, r.Circuit),
			Selected: r.RaceID == rs.selected,
		})
	}
	return ret
}

var raceSelectTmpl = template.Must(template.New("race-select").Parse(`<div class="race-select">
  <label for="{{.Name}}">{{.Label}}</label>
  <select id="{{.Name}}" name="{{.Name}}" onchange="this.form.submit()">
{{- range .Options}}
    <option value="{{.Value}}"{{if .Disabled}} disabled{{end}}{{if .Selected}} selected{{end}}>{{.Text}}</option>
{{- end}}
  </select>
  <small class="help-text">{{.Help}}</small>
</div>`))

// HTML renders the control.
func (rs *RaceSelect) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	err := raceSelectTmpl.Execute(&buf, struct {
		Name    string
		Label   string
		Help    string
		Options []Option
	}{rs.name, RaceSelectLabel, RaceSelectHelp, rs.Options()})
	if err != nil {
		return "", err
	}
	//nolint:gosec // produced by html/template
	return template.HTML(buf.String()), nil
}
