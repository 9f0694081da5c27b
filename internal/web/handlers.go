package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/export"
	"github.com/JonMunkholm/resilience/internal/logging"
	"github.com/JonMunkholm/resilience/internal/survey"
	"github.com/JonMunkholm/resilience/internal/web/templates"
)

// Export kinds as counted by metrics.
const (
	exportKindCurrentCSV  = "current_csv"
	exportKindCurrentJSON = "current_json"
	exportKindBothCSV     = "both_csv"
)

func (s *Server) catalog() *catalog.Catalog {
	return s.session.Store.Catalog()
}

// ============================================================================
// Pages
// ============================================================================

// handleIndex renders the questionnaire for ?mode=, defaulting to AS IS.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	mode := survey.ModeAsIs
	if q := r.URL.Query().Get("mode"); q != "" {
		m, err := survey.ParseMode(q)
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		mode = m
	}

	cat := s.catalog()
	store := s.session.Store
	comparison := survey.Comparison(cat, store.Responses(survey.ModeAsIs), store.Responses(survey.ModeToBe))

	data := templates.PageData{
		SessionID:  s.session.ID,
		Name:       s.session.Name(),
		Mode:       mode,
		Sections:   cat.Sections(),
		View:       s.session.View(mode),
		Comparison: comparison,
		MaxPoints:  survey.MaxPoints,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Questionnaire(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render questionnaire", "error", err)
	}
}

// handleFormSave applies a submitted questionnaire form. Fields are named
// "<pairID>_<side>"; absent fields leave the stored value alone and rejected
// values are ignored, like any other write.
func (s *Server) handleFormSave(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errInvalidBody, err), http.StatusBadRequest)
		return
	}

	if _, ok := r.PostForm["name"]; ok {
		name := r.PostForm.Get("name")
		if err := s.validateName(name); err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		s.session.SetName(name)
	}

	written := 0
	for _, id := range s.catalog().PairIDs() {
		for _, side := range []survey.Side{survey.SideLeft, survey.SideRight} {
			key := id + "_" + string(side)
			if _, ok := r.PostForm[key]; !ok {
				continue
			}
			s.session.Store.SetAllocationInput(mode, id, side, r.PostForm.Get(key))
			written++
		}
	}
	logging.WithFields(r.Context(), "session_id", s.session.ID, "mode", mode.Slug()).
		Debug("form saved", "fields", written)

	http.Redirect(w, r, "/?mode="+mode.Slug(), http.StatusSeeOther)
}

// handleFormReset zeroes one mode from the page.
func (s *Server) handleFormReset(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.session.Store.ResetMode(mode)
	http.Redirect(w, r, "/?mode="+mode.Slug(), http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// ============================================================================
// API
// ============================================================================

type catalogResponse struct {
	Version   int               `json:"version"`
	MaxPoints int               `json:"maxPoints"`
	Sections  []catalog.Section `json:"sections"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog()
	writeJSON(w, r, catalogResponse{
		Version:   cat.Version(),
		MaxPoints: survey.MaxPoints,
		Sections:  cat.Sections(),
	})
}

type sessionResponse struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	CreatedAt time.Time                  `json:"createdAt"`
	Modes     map[string]survey.ModeView `json:"modes"`
}

func (s *Server) sessionSnapshot() sessionResponse {
	modes := make(map[string]survey.ModeView, len(survey.Modes))
	for _, m := range survey.Modes {
		modes[m.Slug()] = s.session.View(m)
	}
	return sessionResponse{
		ID:        s.session.ID,
		Name:      s.session.Name(),
		CreatedAt: s.session.CreatedAt,
		Modes:     modes,
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.sessionSnapshot())
}

func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if err := s.validateName(req.Name); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.session.SetName(req.Name)
	writeJSON(w, r, s.sessionSnapshot())
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, s.session.View(mode))
}

type allocationResponse struct {
	Mode       string            `json:"mode"`
	PairID     string            `json:"pairId"`
	Allocation survey.Allocation `json:"allocation"`
	Valid      bool              `json:"valid"`
	Totals     survey.Totals     `json:"totals"`
}

// handleSetAllocation writes one side of one pair. A rejected value is not an
// error: the reply carries the unchanged allocation.
func (s *Server) handleSetAllocation(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	pairID := chi.URLParam(r, "pairID")
	if _, err := s.catalog().Pair(pairID); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	side, err := survey.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var req valueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	store := s.session.Store
	store.SetAllocationInput(mode, pairID, side, req.Value)

	a := store.Allocation(mode, pairID)
	logging.WithFields(r.Context(), "session_id", s.session.ID, "mode", mode.Slug()).
		Debug("allocation written", "pair", pairID, "side", side, "left", a.Left, "right", a.Right)

	writeJSON(w, r, allocationResponse{
		Mode:       mode.Label(),
		PairID:     pairID,
		Allocation: a,
		Valid:      survey.IsValid(pairID, a),
		Totals:     survey.ComputeTotals(s.catalog(), store.Responses(mode)),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	mode, err := modeParam(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.session.Store.ResetMode(mode)
	logging.WithFields(r.Context(), "session_id", s.session.ID, "mode", mode.Slug()).Info("mode reset")
	writeJSON(w, r, s.session.View(mode))
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	store := s.session.Store
	writeJSON(w, r, survey.Comparison(s.catalog(),
		store.Responses(survey.ModeAsIs),
		store.Responses(survey.ModeToBe)))
}

// handleExport serves the three export kinds as attachments.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseExportFile(chi.URLParam(r, "file"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	cat := s.catalog()
	name := s.session.Name()
	store := s.session.Store

	if req.Target == exportBoth {
		row := export.BothRow(cat, name,
			store.Responses(survey.ModeAsIs),
			store.Responses(survey.ModeToBe))
		s.writeAttachment(w, r, export.BothFilename(name), export.ContentTypeCSV,
			export.WithBOM(export.EncodeTable([]*export.Record{row})))
		s.metrics.RecordExport(exportKindBothCSV)
		return
	}

	mode, err := survey.ParseMode(req.Target)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	rs := store.Responses(mode)
	totals := survey.ComputeTotals(cat, rs)

	switch req.Format {
	case "json":
		body, err := export.EncodeStructured(export.Structured(cat, name, mode, rs, totals))
		if err != nil {
			s.respondError(w, r, fmt.Errorf("encode export: %w", err), http.StatusInternalServerError)
			return
		}
		s.writeAttachment(w, r, export.Filename(name, mode, "json"), export.ContentTypeJSON, body)
		s.metrics.RecordExport(exportKindCurrentJSON)
	default:
		row := export.CurrentRow(cat, name, mode, rs, totals)
		s.writeAttachment(w, r, export.Filename(name, mode, "csv"), export.ContentTypeCSV,
			export.WithBOM(export.EncodeTable([]*export.Record{row})))
		s.metrics.RecordExport(exportKindCurrentCSV)
	}
}

func (s *Server) writeAttachment(w http.ResponseWriter, r *http.Request, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if _, err := w.Write(body); err != nil {
		logging.FromContext(r.Context()).Error("write export", "error", err, "file", filename)
	}
}
