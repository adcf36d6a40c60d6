package web

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/mux"

	"race-telemetry-dashboard/internal/charts"
	"race-telemetry-dashboard/internal/dashboard"
	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/models"
	"race-telemetry-dashboard/internal/widget"
)

func chartTitle(v dashboard.View, slot string) string {
	if slot == charts.SlotTelemetry {
		return v.TelemetryTitle
	}
	return charts.SlotTitle(slot)
}

const maxChartSize = 4096

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": s.SessionCount(),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, true)
	v := ctrl.View()

	raceSelect, err := ctrl.RaceSelect().HTML()
	if err != nil {
		s.log.Error("rendering race select failed", log.ErrorField(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page := newPageData(v, raceSelect)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, page); err != nil {
		s.log.Error("rendering page failed", log.ErrorField(err))
	}
}

// handleRace commits a race selection through the race select widget. The
// widget notifies the controller, which reloads the driver list.
func (s *Server) handleRace(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	err := ctrl.RaceSelect().HandleChange(r.Context(), r.FormValue("race"))
	switch {
	case errors.Is(err, widget.ErrPlaceholder), errors.Is(err, widget.ErrUnknownRace):
		respondBadRequest(w, r, err)
		return
	case err != nil && !errors.Is(err, dashboard.ErrStale):
		// shown as banner
		s.log.Debug("race change failed", log.ErrorField(err))
	}
	respondAction(w, r, ctrl)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	session, err := models.ParseSession(r.FormValue("session"))
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if err := ctrl.SelectSession(r.Context(), session); err != nil && !errors.Is(err, dashboard.ErrStale) {
		s.log.Debug("session change failed", log.ErrorField(err))
	}
	respondAction(w, r, ctrl)
}

func (s *Server) handleDrivers(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	if err := r.ParseForm(); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	ctrl.SelectDrivers(r.PostForm["drivers"])
	respondAction(w, r, ctrl)
}

func (s *Server) handleLap(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	ctrl.SelectLap(formLap(r))
	respondAction(w, r, ctrl)
}

// formLap reads the lap field. Unparsable values become 0 which the
// dashboard turns into lap 1.
func formLap(r *http.Request) int {
	lap, _ := strconv.Atoi(r.FormValue("lap"))
	return lap
}

// handleLoad applies the driver and lap fields of the form, if present, and
// loads the dashboard. The page form marks itself with driver_form so that an
// empty checkbox list clears the selection.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	if err := r.ParseForm(); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if ids, ok := r.PostForm["drivers"]; ok || r.PostForm.Has("driver_form") {
		ctrl.SelectDrivers(ids)
	}
	if r.PostForm.Has("lap") {
		ctrl.SelectLap(formLap(r))
	}
	if err := ctrl.Load(r.Context()); err != nil && !errors.Is(err, dashboard.ErrStale) {
		s.log.Debug("dashboard load failed", log.ErrorField(err))
	}
	respondAction(w, r, ctrl)
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	metric, err := models.ParseMetric(r.FormValue("metric"))
	if err != nil {
		respondBadRequest(w, r, err)
		return
	}
	if err := ctrl.ChangeMetric(r.Context(), metric); err != nil && !errors.Is(err, dashboard.ErrStale) {
		s.log.Debug("metric change failed", log.ErrorField(err))
	}
	respondAction(w, r, ctrl)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	id, err := strconv.ParseUint(r.FormValue("id"), 10, 64)
	if err != nil {
		respondBadRequest(w, r, errors.New("invalid banner id"))
		return
	}
	ctrl.DismissError(id)
	respondAction(w, r, ctrl)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.controller(w, r, false).View())
}

func (s *Server) handleChartConfig(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	slot := mux.Vars(r)["slot"]
	h, ok := ctrl.Registry().Get(slot)
	if !ok {
		respondError(w, http.StatusNotFound, "no chart in slot "+slot)
		return
	}
	respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(w, r, false)
	slot := mux.Vars(r)["slot"]
	if !slices.Contains(charts.Slots, slot) {
		http.NotFound(w, r)
		return
	}

	var cfg charts.Config
	if h, ok := ctrl.Registry().Get(slot); ok {
		cfg = h.Config
	}
	width := sizeParam(r, "width", charts.DefaultWidth)
	height := sizeParam(r, "height", charts.DefaultHeight)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := charts.RenderPNG(w, cfg, chartTitle(ctrl.View(), slot), width, height); err != nil {
		s.log.Warn("writing chart failed", log.String("slot", slot), log.ErrorField(err))
	}
}

func sizeParam(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxChartSize)
}
