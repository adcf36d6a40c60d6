package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"race-telemetry-dashboard/internal/charts"
	"race-telemetry-dashboard/internal/client"
	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
	"race-telemetry-dashboard/internal/widget"
)

// Fetcher is the subset of the racing API the controller needs.
type Fetcher interface {
	CheckHealth(ctx context.Context) bool
	ListRaces(ctx context.Context) ([]models.Race, error)
	ListDrivers(ctx context.Context, raceID string, session models.Session) ([]string, error)
	GetLaps(ctx context.Context, raceID string, driverIDs []string,
		session models.Session) (models.LapsResponse, error)
	GetTelemetry(ctx context.Context, raceID string, driverIDs []string, lapNumber int,
		session models.Session) (models.TelemetryResponse, error)
	GetSummary(ctx context.Context, raceID string, driverIDs []string,
		session models.Session) (models.SummaryResponse, error)
}

var _ Fetcher = (*client.Client)(nil)

// ErrStale is returned by operations whose result was discarded because a newer
// operation started meanwhile.
var ErrStale = errors.New("superseded by a newer request")

// ErrUnavailable is returned by Init if the racing API does not answer.
var ErrUnavailable = errors.New("racing API unavailable")

// AfterFunc schedules f after d and returns a function cancelling it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

const DefaultErrorTimeout = 5 * time.Second

// Legend slots of the dashboard page.
const (
	LegendLapTimes  = "lap-times-legend"
	LegendTelemetry = "telemetry-legend"
	LegendTires     = "tire-legend"
)

var legendSlots = []string{LegendLapTimes, LegendTelemetry, LegendTires}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithAfterFunc replaces the timer used to dismiss error banners.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = fn }
}

func WithErrorTimeout(d time.Duration) Option {
	return func(c *Controller) { c.errorTimeout = d }
}

// WithAPIName sets the API location mentioned when the API is unreachable.
func WithAPIName(name string) Option {
	return func(c *Controller) { c.apiName = name }
}

// Controller drives one dashboard. All methods are safe for concurrent use.
// Network calls happen without holding the state lock; their results are only
// applied if no newer operation of the same kind started meanwhile.
type Controller struct {
	api          Fetcher
	apiName      string
	log          *log.Logger
	afterFunc    AfterFunc
	errorTimeout time.Duration
	raceSelect   *widget.RaceSelect
	registry     *charts.Registry
	notifier     *Notifier[View]

	mu           sync.Mutex
	state        State
	gen          uint64 // driver list loads and dashboard loads
	metricGen    uint64 // telemetry refetches
	bannerSeq    uint64
	stopTimer    func() bool
	version      uint64
	laps         models.LapsResponse
	telemetry    models.TelemetryResponse
	telemetryLap int
	summary      []charts.SummaryCard
	legends      map[string][]charts.LegendEntry
}

func NewController(api Fetcher, opts ...Option) *Controller {
	c := &Controller{
		api:          api,
		apiName:      "the configured URL",
		log:          log.Default().Named("dashboard"),
		afterFunc:    timeAfterFunc,
		errorTimeout: DefaultErrorTimeout,
		raceSelect:   widget.NewRaceSelect("race"),
		registry:     charts.NewRegistry(),
		notifier:     NewNotifier[View](),
		state:        Initial(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.raceSelect.OnChange(c.SelectRace)
	c.registry.OnDestroy(func(h *charts.Handle) {
		c.log.Debug("chart destroyed", log.String("slot", h.Slot), log.Uint64("version", h.Version))
	})
	return c
}

func (c *Controller) RaceSelect() *widget.RaceSelect { return c.raceSelect }

func (c *Controller) Registry() *charts.Registry { return c.registry }

// Subscribe delivers a view after every change.
func (c *Controller) Subscribe() <-chan View { return c.notifier.Subscribe() }

func (c *Controller) Unsubscribe(ch <-chan View) { c.notifier.CancelSubscription(ch) }

// Close stops pending timers and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
	c.mu.Unlock()
	c.log.Debug("dashboard closed", log.Int("skipped_views", c.notifier.Skipped()))
	c.notifier.Close()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Init checks the API and loads the race list into the race selection.
func (c *Controller) Init(ctx context.Context) error {
	if !c.api.CheckHealth(ctx) {
		c.raise(fmt.Sprintf(msgUnavailableFormat, c.apiName))
		return ErrUnavailable
	}
	races, err := c.api.ListRaces(ctx)
	if err != nil {
		c.log.Warn("could not load races", log.ErrorField(err))
		c.raise(messageOf(err, MsgRacesFailed))
		return err
	}
	c.raceSelect.UpdateRaces(races)
	c.publish()
	return nil
}

// SelectRace switches the race and reloads its driver list.
// An empty id clears the selection without a fetch.
func (c *Controller) SelectRace(ctx context.Context, raceID string) error {
	switch {
	case raceID == "":
		c.raceSelect.Reset()
	case c.raceSelect.SelectedRace() != raceID:
		if err := c.raceSelect.SetSelectedRace(raceID); err != nil {
			c.log.Debug("race not in race list", log.String("race", raceID), log.ErrorField(err))
		}
	}
	return c.reloadDrivers(ctx, RaceSelected{RaceID: raceID})
}

// SelectSession switches the session and reloads the driver list.
func (c *Controller) SelectSession(ctx context.Context, session models.Session) error {
	return c.reloadDrivers(ctx, SessionSelected{Session: session})
}

func (c *Controller) reloadDrivers(ctx context.Context, ev Event) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = Reduce(c.state, ev)
	c.clearDataLocked()
	raceID, session := c.state.RaceID, c.state.Session
	c.mu.Unlock()
	c.publish()

	if raceID == "" {
		return nil
	}
	ids, err := c.api.ListDrivers(ctx, raceID, session)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarding stale driver list", log.String("race", raceID))
		return ErrStale
	}
	if err != nil {
		c.log.Warn("could not load drivers", log.String("race", raceID), log.ErrorField(err))
		c.raiseLocked(MsgDriversFailed)
	} else {
		c.state = Reduce(c.state, DriversLoaded{Drivers: ids})
	}
	c.mu.Unlock()
	c.publish()
	return err
}

// SelectDrivers replaces the selection. A load still running for the previous
// selection is discarded.
func (c *Controller) SelectDrivers(ids []string) {
	c.mu.Lock()
	c.gen++
	c.state = Reduce(c.state, DriversSelected{Drivers: ids})
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) SelectLap(lap int) {
	c.update(LapSelected{Lap: lap})
}

func (c *Controller) update(ev Event) {
	c.mu.Lock()
	c.state = Reduce(c.state, ev)
	c.mu.Unlock()
	c.publish()
}

// Load fetches laps, telemetry and summary of the current selection and rebuilds
// all charts. Either all three results are applied or none.
//
//nolint:funlen // sequential steps
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if err := Validate(c.state); err != nil {
		c.raiseLocked(err.Error())
		c.mu.Unlock()
		c.publish()
		return err
	}
	c.gen++
	gen := c.gen
	c.clearBannerLocked()
	c.state = Reduce(c.state, LoadStarted{})
	req := c.state
	req.Selected = slices.Clone(c.state.Selected)
	c.mu.Unlock()
	c.publish()

	var (
		laps      models.LapsResponse
		telemetry models.TelemetryResponse
		summary   models.SummaryResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		laps, err = c.api.GetLaps(gctx, req.RaceID, req.Selected, req.Session)
		return err
	})
	g.Go(func() (err error) {
		telemetry, err = c.api.GetTelemetry(gctx, req.RaceID, req.Selected, req.Lap, req.Session)
		return err
	})
	g.Go(func() (err error) {
		summary, err = c.api.GetSummary(gctx, req.RaceID, req.Selected, req.Session)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarding stale dashboard load", log.String("race", req.RaceID))
		return ErrStale
	}
	if err != nil {
		c.log.Warn("dashboard load failed", log.String("race", req.RaceID), log.ErrorField(err))
		c.raiseLocked(messageOf(err, MsgLoadFailed))
		c.mu.Unlock()
		c.publish()
		return err
	}

	c.laps = laps.Retain(req.Selected)
	c.telemetry = telemetry.Retain(req.Selected)
	c.telemetryLap = req.Lap
	c.summary = charts.SummaryCards(summary.Retain(req.Selected))
	c.state = Reduce(c.state, LoadSucceeded{Laps: AvailableLaps(c.laps)})

	c.registry.Replace(charts.SlotLapTimes, charts.LapTimes(c.laps))
	c.registry.Replace(charts.SlotTelemetry, charts.Telemetry(c.telemetry, c.state.Metric))
	c.registry.Replace(charts.SlotTires, charts.TireCounts(c.laps))
	c.registry.Replace(charts.SlotTireStrategy, charts.TireStrategy(c.laps))
	c.legends = make(map[string][]charts.LegendEntry, len(legendSlots))
	for _, slot := range legendSlots {
		c.legends[slot] = charts.Legend(req.Selected)
	}
	c.mu.Unlock()

	c.log.Info("dashboard loaded",
		log.String("race", req.RaceID),
		log.String("session", string(req.Session)),
		log.Strings("drivers", req.Selected),
		log.Int("lap", req.Lap))
	c.publish()
	return nil
}

// ChangeMetric switches the telemetry metric and refetches the telemetry of the
// current selection. Only the telemetry chart is rebuilt.
func (c *Controller) ChangeMetric(ctx context.Context, metric models.Metric) error {
	c.mu.Lock()
	c.state = Reduce(c.state, MetricSelected{Metric: metric})
	if c.state.RaceID == "" || len(c.state.Selected) == 0 {
		c.mu.Unlock()
		c.publish()
		return nil
	}
	c.metricGen++
	gen, metricGen := c.gen, c.metricGen
	req := c.state
	req.Selected = slices.Clone(c.state.Selected)
	c.mu.Unlock()
	c.publish()

	telemetry, err := c.api.GetTelemetry(ctx, req.RaceID, req.Selected, req.Lap, req.Session)

	c.mu.Lock()
	if gen != c.gen || metricGen != c.metricGen {
		c.mu.Unlock()
		c.log.Debug("discarding stale telemetry", log.String("metric", string(metric)))
		return ErrStale
	}
	if err != nil {
		c.log.Warn("telemetry refetch failed", log.ErrorField(err))
		c.raiseLocked(MsgTelemetryFailed)
	} else {
		c.telemetry = telemetry.Retain(req.Selected)
		c.telemetryLap = req.Lap
		c.registry.Replace(charts.SlotTelemetry, charts.Telemetry(c.telemetry, c.state.Metric))
	}
	c.mu.Unlock()
	c.publish()
	return err
}

// DismissError removes the banner with the given id, if it is still shown.
func (c *Controller) DismissError(id uint64) {
	c.update(ErrorDismissed{ID: id})
}

func (c *Controller) raise(msg string) {
	c.mu.Lock()
	c.raiseLocked(msg)
	c.mu.Unlock()
	c.publish()
}

// raiseLocked replaces the current banner and schedules its dismissal.
func (c *Controller) raiseLocked(msg string) {
	c.clearBannerLocked()
	c.bannerSeq++
	id := c.bannerSeq
	c.state = Reduce(c.state, ErrorRaised{Banner: Banner{ID: id, Message: msg}})
	c.stopTimer = c.afterFunc(c.errorTimeout, func() { c.DismissError(id) })
}

func (c *Controller) clearBannerLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}

func (c *Controller) clearDataLocked() {
	c.registry.Clear()
	c.laps = models.LapsResponse{}
	c.telemetry = models.TelemetryResponse{}
	c.telemetryLap = 0
	c.summary = nil
	c.legends = nil
}

// messageOf uses the message of API errors and fallback for everything else.
func messageOf(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
