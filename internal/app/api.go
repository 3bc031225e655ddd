package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/billing"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/export"
	"github.com/Spok95/academy-tuition/internal/metrics"
	"github.com/Spok95/academy-tuition/internal/models"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// Tuition: операции, которые API отдаёт наружу. Реализация: *billing.Service.
type Tuition interface {
	Generate(ctx context.Context, classID int64, start time.Time, target int) (*tuition.Result, error)
	Materialize(ctx context.Context, classID int64, studentIDs []int64, res *tuition.Result, periodStart time.Time) (billing.Outcome, error)
	CancelSession(ctx context.Context, sessionID int64) (*billing.Change, error)
	MarkCarryover(ctx context.Context, sessionID int64, reason string) (*billing.Change, error)
	ResolveAttendance(ctx context.Context, sessionID int64, status models.SessionStatus) (*billing.Change, error)
	AddReplacementSession(ctx context.Context, tuitionFeeID int64, date time.Time, originalSessionID int64) (*billing.Change, error)
	Recalculate(ctx context.Context, tuitionFeeID int64) (tuition.Totals, error)
	ApplyClosureByID(ctx context.Context, closureID int64) (int, error)
	WithdrawClosure(ctx context.Context, closureID int64) (int, error)
	Statement(ctx context.Context, tuitionFeeID int64) (*models.TuitionFee, []models.Session, error)
}

type API struct {
	svc     Tuition
	log     *zap.Logger
	loc     *time.Location
	classes *KeyLimiter
}

// NewAPI: loc задаёт «сегодня» для запросов без start_date.
func NewAPI(svc Tuition, log *zap.Logger, loc *time.Location) *API {
	if loc == nil {
		loc = time.UTC
	}
	return &API{svc: svc, log: log, loc: loc, classes: NewKeyLimiter()}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/classes/{id}/generate", a.generate)
	mux.HandleFunc("POST /api/classes/{id}/materialize", a.materialize)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", a.cancelSession)
	mux.HandleFunc("POST /api/sessions/{id}/carryover", a.markCarryover)
	mux.HandleFunc("POST /api/sessions/{id}/attendance", a.resolveAttendance)
	mux.HandleFunc("POST /api/tuition-fees/{id}/replacements", a.addReplacement)
	mux.HandleFunc("POST /api/tuition-fees/{id}/recalculate", a.recalculate)
	mux.HandleFunc("GET /api/tuition-fees/{id}/statement.xlsx", a.statement)
	mux.HandleFunc("POST /api/closures/{id}/apply", a.applyClosure)
	mux.HandleFunc("POST /api/closures/{id}/withdraw", a.withdrawClosure)
}

func (a *API) generate(w http.ResponseWriter, r *http.Request) {
	classID, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	start, err := a.startDate(req.StartDate)
	if err != nil {
		a.fail(w, err)
		return
	}
	res, err := a.svc.Generate(r.Context(), classID, start, req.Target)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(res))
}

func (a *API) materialize(w http.ResponseWriter, r *http.Request) {
	classID, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req materializeRequest
	if !a.decode(w, r, &req) {
		return
	}
	start, err := a.startDate(req.StartDate)
	if err != nil {
		a.fail(w, err)
		return
	}
	if len(req.StudentIDs) == 0 {
		a.fail(w, badRequest("student_ids is empty"))
		return
	}

	unlock := a.classes.lock(classID)
	defer unlock()

	// генерация чистая, поэтому пересчитываем её здесь, а не доверяем клиенту
	res, err := a.svc.Generate(r.Context(), classID, start, req.Target)
	if err != nil {
		a.fail(w, err)
		return
	}
	out, err := a.svc.Materialize(r.Context(), classID, req.StudentIDs, res, start)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) cancelSession(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	ch, err := a.svc.CancelSession(r.Context(), id)
	a.writeChange(w, ch, err)
}

func (a *API) markCarryover(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req carryoverRequest
	if !a.decode(w, r, &req) {
		return
	}
	ch, err := a.svc.MarkCarryover(r.Context(), id, req.Reason)
	a.writeChange(w, ch, err)
}

func (a *API) resolveAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req attendanceRequest
	if !a.decode(w, r, &req) {
		return
	}
	ch, err := a.svc.ResolveAttendance(r.Context(), id, req.Status)
	a.writeChange(w, ch, err)
}

func (a *API) addReplacement(w http.ResponseWriter, r *http.Request) {
	feeID, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req replacementRequest
	if !a.decode(w, r, &req) {
		return
	}
	date, err := tuition.ParseDate(req.Date)
	if err != nil {
		a.fail(w, badRequest("date: %v", err))
		return
	}
	ch, err := a.svc.AddReplacementSession(r.Context(), feeID, date, req.OriginalSessionID)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChangeDTO(ch))
}

func (a *API) recalculate(w http.ResponseWriter, r *http.Request) {
	feeID, ok := a.pathID(w, r)
	if !ok {
		return
	}
	totals, err := a.svc.Recalculate(r.Context(), feeID)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (a *API) statement(w http.ResponseWriter, r *http.Request) {
	feeID, ok := a.pathID(w, r)
	if !ok {
		return
	}
	fee, sessions, err := a.svc.Statement(r.Context(), feeID)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	name := export.BuildStatementFilename(fee.StudentName, fee.ClassName, fee.Year, fee.Month)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tuition_%d.xlsx"; filename*=UTF-8''%s`, feeID, url.PathEscape(name)))
	if err := export.WriteStatement(w, fee, sessions); err != nil {
		a.log.Error("statement export failed", zap.Int64("tuition_fee_id", feeID), zap.Error(err))
	}
}

func (a *API) applyClosure(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	n, err := a.svc.ApplyClosureByID(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"affected": n})
}

func (a *API) withdrawClosure(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	n, err := a.svc.WithdrawClosure(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"affected": n})
}

func (a *API) writeChange(w http.ResponseWriter, ch *billing.Change, err error) {
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeDTO(ch))
}

// startDate: пустая строка означает сегодняшнюю дату в часовом поясе академии.
func (a *API) startDate(s string) (time.Time, error) {
	if s == "" {
		return tuition.Day(time.Now().In(a.loc)), nil
	}
	d, err := tuition.ParseDate(s)
	if err != nil {
		return time.Time{}, badRequest("start_date: %v", err)
	}
	return d, nil
}

func (a *API) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		a.fail(w, badRequest("bad id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.fail(w, badRequest("bad json: %v", err))
		return false
	}
	return true
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// statusOf сопоставляет ошибку HTTP-коду.
func statusOf(err error) int {
	var (
		reqErr     *requestError
		horizonErr *tuition.HorizonError
		transErr   *tuition.TransitionError
		unknownErr *billing.UnknownStudentsError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transErr):
		return http.StatusConflict
	case errors.As(err, &horizonErr),
		errors.As(err, &unknownErr),
		errors.Is(err, tuition.ErrNoSchedule),
		errors.Is(err, tuition.ErrInvalidTarget),
		errors.Is(err, billing.ErrEmptyResult),
		errors.Is(err, billing.ErrForeignSession),
		errors.Is(err, billing.ErrNotAttendanceStatus):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *API) fail(w http.ResponseWriter, err error) {
	code := statusOf(err)
	metrics.HTTPErrors.WithLabelValues(strconv.Itoa(code)).Inc()
	msg := err.Error()
	if code == http.StatusInternalServerError {
		a.log.Error("api error", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
