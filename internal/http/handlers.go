package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pillars/internal/core"
	"pillars/internal/export"
	"pillars/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/day", http.StatusSeeOther)
}

// workingDayFor returns the cached working day of d, loading it from the
// store on a miss. Callers hold s.mu.
func (s *Server) workingDayFor(ctx context.Context, d core.Date) (*workingDay, error) {
	if wd, ok := s.sessions.Get(d.Key()); ok {
		return wd, nil
	}
	loaded, err := s.ledger.LoadSession(ctx, d)
	if err != nil {
		return nil, err
	}
	wd := &workingDay{sess: loaded.Session, found: loaded.Found, warnings: loaded.Warnings}
	s.sessions.Set(d.Key(), wd)
	return wd, nil
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet, http.MethodPost); rb != nil {
		rb.Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	d, err := dateParam(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wd, err := s.workingDayFor(r.Context(), d)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to open day", log.FieldDate, d.Key(), log.FieldError, err)
		InternalServerError("Could not open " + d.Key()).Write(w)
		return
	}
	if r.Method == http.MethodGet {
		s.renderDay(w, r, http.StatusOK, wd, nil)
		return
	}
	s.postDay(w, r, d, wd)
}

// postDay applies the posted form to wd and then runs the clicked action.
// Invalid input is rejected with 422 before anything changes.
func (s *Server) postDay(w http.ResponseWriter, r *http.Request, d core.Date, wd *workingDay) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	action, err := ParseAction(r.PostForm.Get(fieldAction))
	if err != nil {
		s.renderDay(w, r, http.StatusUnprocessableEntity, wd, []Notice{{Kind: "error", Message: err.Error()}})
		return
	}

	if action.Kind == ActionReload {
		if wd.dirty {
			logger.InfoContext(ctx, "Discarding unsaved changes", log.FieldDate, d.Key())
		}
		s.sessions.Delete(d.Key())
		if wd, err = s.workingDayFor(ctx, d); err != nil {
			InternalServerError("Could not reload " + d.Key()).Write(w)
			return
		}
		s.renderDay(w, r, http.StatusOK, wd, []Notice{{Kind: "success", Message: "Reloaded the saved data of " + d.Key()}})
		return
	}

	input, err := ParseDayForm(r.PostForm, wd.sess)
	if err != nil {
		s.renderDay(w, r, http.StatusUnprocessableEntity, wd, []Notice{{Kind: "error", Message: err.Error()}})
		return
	}
	changed, err := wd.sess.Apply(input)
	if err != nil {
		s.renderDay(w, r, http.StatusUnprocessableEntity, wd, []Notice{{Kind: "error", Message: err.Error()}})
		return
	}
	wd.dirty = true

	var notices []Notice
	if len(changed) > 0 {
		wd.pendingPrices = mergeItems(wd.pendingPrices, changed)
		if err := s.ledger.PersistPrices(ctx, wd.sess.Prices, wd.pendingPrices); err != nil {
			log.NewStructuredLogger(logger).LogError(ctx, "Failed to persist prices", err, log.ComponentHTTP, log.OpPrice, nil)
			notices = append(notices, Notice{Kind: "warning", Message: "New prices are kept on this page but could not be stored yet: " + err.Error()})
		} else {
			wd.pendingPrices = nil
			s.dropCleanDays(d.Key())
			notices = append(notices, Notice{Kind: "success", Message: "Price updated for " + strings.Join(changed, ", ")})
		}
	}

	status := http.StatusOK
	switch action.Kind {
	case ActionAddExpense:
		err = wd.sess.AddExpense(core.ExpenseLine{})
	case ActionRemoveExpense:
		err = wd.sess.RemoveExpense(action.Index)
	case ActionAddRoom:
		err = wd.sess.AddAccommodation(core.AccommodationRecord{Method: core.Cash})
	case ActionRemoveRoom:
		err = wd.sess.RemoveAccommodation(action.Index)
	case ActionSave:
		summary, saveErr := s.ledger.SaveSession(ctx, wd.sess, wd.pendingPrices)
		if saveErr != nil {
			log.NewStructuredLogger(logger).LogError(ctx, "Failed to save day", saveErr, log.ComponentHTTP, log.OpSave,
				log.NewFields().WithDay(d.Key(), ""))
			status = http.StatusInternalServerError
			notices = append(notices, Notice{Kind: "error", Message: "Could not save, your changes are still here: " + saveErr.Error()})
			break
		}
		if len(wd.pendingPrices) > 0 {
			s.dropCleanDays(d.Key())
		}
		wd.dirty, wd.found, wd.warnings, wd.pendingPrices = false, true, nil, nil
		notices = append(notices, Notice{Kind: "success", Message: fmt.Sprintf("Saved %s. Net profit %s", d.Key(), core.FormatAmount(summary.NetProfit))})
	}
	if err != nil {
		status = http.StatusUnprocessableEntity
		notices = append(notices, Notice{Kind: "error", Message: err.Error()})
	}
	s.renderDay(w, r, status, wd, notices)
}

// dropCleanDays evicts every cached day except keep that has no unsaved
// edits, so the next visit reloads it with the current price book. Days
// with edits keep the prices they were edited with. Callers hold s.mu.
func (s *Server) dropCleanDays(keep string) {
	for _, key := range s.sessions.Keys() {
		if key == keep {
			continue
		}
		if wd, ok := s.sessions.Get(key); ok && !wd.dirty {
			s.sessions.Delete(key)
		}
	}
}

func mergeItems(have, add []string) []string {
	for _, item := range add {
		found := false
		for _, h := range have {
			if h == item {
				found = true
				break
			}
		}
		if !found {
			have = append(have, item)
		}
	}
	return have
}

func (s *Server) renderDay(w http.ResponseWriter, r *http.Request, status int, wd *workingDay, notices []Notice) {
	s.render(w, r, status, "day.html", newDayView(wd, s.ledger.Options(), notices))
}

// render executes a template into a buffer first so a template error
// still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name)
		InternalServerError("could not render page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	d, err := dateParam(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wd, err := s.workingDayFor(r.Context(), d)
	if err != nil {
		InternalServerError("Could not open " + d.Key()).Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.ledger.Export(&buf, wd.sess); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Export failed", err, log.ComponentExport, log.OpExport,
			log.NewFields().WithDay(d.Key(), ""))
		InternalServerError("Could not build the report").Write(w)
		return
	}
	NewResponse().
		Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet").
		Header("Content-Disposition", `attachment; filename="`+export.FileName(d)+`"`).
		Header("Content-Length", strconv.Itoa(buf.Len())).
		BodyString(buf.String()).
		Write(w)
}

type datesView struct {
	Dates []string
	Error string
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	dates, err := s.ledger.ListDates(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list dates", log.FieldError, err)
		s.render(w, r, http.StatusInternalServerError, "dates.html", datesView{Error: "Could not list saved days: " + err.Error()})
		return
	}
	v := datesView{Dates: make([]string, len(dates))}
	for i, d := range dates {
		v.Dates[i] = d.Key()
	}
	s.render(w, r, http.StatusOK, "dates.html", v)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	d, err := dateParam(r)
	if err != nil {
		NewResponse().Status(http.StatusBadRequest).JSON(map[string]string{"error": err.Error()}).Write(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wd, err := s.workingDayFor(r.Context(), d)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		NewResponse().Status(status).JSON(map[string]string{"error": err.Error()}).Write(w)
		return
	}
	NewResponse().JSON(newSummaryJSON(wd, s.ledger.Options())).Write(w)
}
