package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skycargo/targetplanner/internal/planner"
	"github.com/skycargo/targetplanner/internal/session"
	"github.com/skycargo/targetplanner/internal/workbook"
)

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	stations, err := workbook.ScanStations(s.cfg.DataDir)
	if err != nil {
		http.Error(w, "station scan failed", http.StatusInternalServerError)
		return
	}

	var selected string
	sess.Do(func(st *session.State) { selected = st.Station })

	writeJSON(w, map[string]any{
		"stations": stations,
		"selected": selected,
	})
}

func (s *Server) handleSelectStation(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Station string `json:"station"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Station == "" {
		http.Error(w, "station is required", http.StatusBadRequest)
		return
	}

	station, err := workbook.LoadStation(s.cfg.DataDir, req.Station)
	if err != nil {
		slog.Warn("station load failed", "station", req.Station, "error", err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	sess.Do(func(st *session.State) {
		st.SetStation(station.Name, station.Targets, station.Weeks, station.WeekOrder)
	})
	slog.Info("station loaded", "station", station.Name, "weeks", len(station.WeekOrder))

	writeJSON(w, map[string]any{
		"ok":      true,
		"station": station.Name,
		"weeks":   station.WeekOrder,
	})
}

func (s *Server) handleWeeks(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var weeks []int
	var selected int
	sess.Do(func(st *session.State) {
		weeks = st.WeekOrder
		selected = st.Week
	})
	writeJSON(w, map[string]any{"weeks": weeks, "selected": selected})
}

func (s *Server) handleSelectWeek(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Week int `json:"week"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	ok := false
	sess.Do(func(st *session.State) { ok = st.SelectWeek(req.Week) })
	if !ok {
		http.Error(w, "no target data for the selected week", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "week": req.Week})
}

func (s *Server) handleCurrency(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Currency string `json:"currency"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if !s.cfg.HasCurrency(req.Currency) {
		http.Error(w, "unknown currency", http.StatusBadRequest)
		return
	}

	sess.Do(func(st *session.State) { st.Currency = req.Currency })
	writeJSON(w, map[string]any{"ok": true, "currency": req.Currency})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var view *planView
	sess.Do(func(st *session.State) {
		if st.Station == "" {
			return
		}
		view = s.buildPlanView(st)
	})
	if view == nil {
		http.Error(w, "no station selected", http.StatusBadRequest)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleTableUpdate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Rows []planner.Row `json:"rows"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	// The table editor never produces negative figures; anything else
	// submitting them is malformed input, not data to repair.
	for i, row := range req.Rows {
		if row.Tonnage < 0 || row.Yield < 0 || row.Revenue < 0 {
			http.Error(w, fmt.Sprintf("row %d: tonnage, yield and revenue must not be negative", i), http.StatusBadRequest)
			return
		}
	}

	ok := false
	sess.Do(func(st *session.State) { ok = st.ReplaceActive(req.Rows) })
	if !ok {
		http.Error(w, "no table loaded for the selected week", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "rows": len(req.Rows)})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var diags []planner.Diagnostic
	status := ""
	sess.Do(func(st *session.State) {
		targets, ok := st.WeekTargets()
		if !ok {
			status = "no targets for the selected week"
			return
		}
		var applied bool
		diags, applied = st.Recommend(s.convertTargets(targets, st.Currency))
		if !applied {
			status = "no weekly performance data for the selected week"
		}
	})
	if status != "" {
		http.Error(w, status, http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{"ok": true, "warnings": diags})
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var diags []planner.Diagnostic
	ok := false
	sess.Do(func(st *session.State) { diags, ok = st.Adjust() })
	if !ok {
		http.Error(w, "no table loaded for the selected week", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "warnings": diags})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var current planner.Summary
	ok := false
	sess.Do(func(st *session.State) {
		if ok = st.Apply(); ok {
			current = st.Current
		}
	})
	if !ok {
		http.Error(w, "no table loaded for the selected week", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "current": current})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Do(func(st *session.State) { st.Reset() })
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Do(func(st *session.State) { st.Back() })
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var tbl planner.Table
	var station, prefix, sheet string
	ok := false
	sess.Do(func(st *session.State) {
		tbl, ok = st.ActiveTable()
		station = st.Station
		if st.ShowRecommendations && st.Recommendations != nil {
			prefix, sheet = "recommendations", "Recommendations"
		} else {
			prefix, sheet = "weekly_avg", fmt.Sprintf("Week_%d", st.Week)
		}
	})
	if !ok {
		http.Error(w, "no table loaded for the selected week", http.StatusBadRequest)
		return
	}

	data, err := workbook.Export(tbl, sheet)
	if err != nil {
		slog.Error("export failed", "station", station, "week", tbl.Week, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	filename := workbook.ExportFilename(prefix, station, tbl.Week, time.Now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// convertTargets applies the display currency rate to the monetary
// targets. Workbook targets are AED; tonnage has no currency.
func (s *Server) convertTargets(t planner.Targets, currency string) planner.Targets {
	rate := s.cfg.Currency(currency).Rate
	return planner.Targets{
		Tonnage:  t.Tonnage,
		Revenue:  t.Revenue * rate,
		AvgYield: t.AvgYield * rate,
	}
}
