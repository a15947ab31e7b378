package program

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=program_test

type commands interface {
	Enroll(ctx context.Context, userID string, programID int, replaceActive bool) (*Enrollment, error)
	StartDay(ctx context.Context, enrollmentID int) (*Enrollment, error)
	CompleteDay(ctx context.Context, params CompleteDayParams) (*DayResult, error)
	SkipDay(ctx context.Context, params SkipDayParams) (*DayResult, error)
	RemarkDay(ctx context.Context, params RemarkDayParams) (*DayResult, error)
	Advance(ctx context.Context, enrollmentID int) (*Enrollment, error)
	Pause(ctx context.Context, enrollmentID int) (*Enrollment, error)
	Resume(ctx context.Context, enrollmentID int) (*Enrollment, error)
	Cancel(ctx context.Context, enrollmentID int) (*Enrollment, error)
	SetDaySubstitution(ctx context.Context, params SubstitutionParams) (*DaySubstitution, error)
	ClearDaySubstitution(ctx context.Context, key SubstitutionKey) (bool, error)
}

type queries interface {
	Progress(ctx context.Context, enrollmentID int, loc *time.Location) (*Progress, error)
	GetEnrollment(ctx context.Context, enrollmentID int) (*Enrollment, error)
	ListUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	GetProgram(ctx context.Context, programID int) (*ProgramDetails, error)
}

type workouts interface {
	BuildDayWorkout(ctx context.Context, enrollmentID, dayNumber int) (*DayWorkout, error)
}

type Handler struct {
	commands commands
	queries  queries
	workouts workouts
}

func NewHandler(commands commands, queries queries, workouts workouts) *Handler {
	return &Handler{
		commands: commands,
		queries:  queries,
		workouts: workouts,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/enrollments", handler.HandleEnroll).Methods("POST").Name("enroll")
	router.HandleFunc("/enrollments/{id}", handler.HandleGetEnrollment).Methods("GET").Name("enrollment-get")
	router.HandleFunc("/enrollments/{id}/start", handler.enrollmentCommand("start", handler.commands.StartDay)).Methods("POST").Name("enrollment-start")
	router.HandleFunc("/enrollments/{id}/advance", handler.enrollmentCommand("advance", handler.commands.Advance)).Methods("POST").Name("enrollment-advance")
	router.HandleFunc("/enrollments/{id}/pause", handler.enrollmentCommand("pause", handler.commands.Pause)).Methods("POST").Name("enrollment-pause")
	router.HandleFunc("/enrollments/{id}/resume", handler.enrollmentCommand("resume", handler.commands.Resume)).Methods("POST").Name("enrollment-resume")
	router.HandleFunc("/enrollments/{id}/cancel", handler.enrollmentCommand("cancel", handler.commands.Cancel)).Methods("POST").Name("enrollment-cancel")
	router.HandleFunc("/enrollments/{id}/progress", handler.HandleProgress).Methods("GET").Name("enrollment-progress")
	router.HandleFunc("/enrollments/{id}/days/{day}/complete", handler.HandleCompleteDay).Methods("POST").Name("day-complete")
	router.HandleFunc("/enrollments/{id}/days/{day}/skip", handler.HandleSkipDay).Methods("POST").Name("day-skip")
	router.HandleFunc("/enrollments/{id}/days/{day}/remark", handler.HandleRemarkDay).Methods("POST").Name("day-remark")
	router.HandleFunc("/enrollments/{id}/days/{day}/workout", handler.HandleDayWorkout).Methods("GET").Name("day-workout")
	router.HandleFunc("/enrollments/{id}/days/{day}/substitutions", handler.HandleSetSubstitution).Methods("PUT").Name("substitution-set")
	router.HandleFunc("/enrollments/{id}/days/{day}/substitutions", handler.HandleClearSubstitution).Methods("DELETE").Name("substitution-clear")
	router.HandleFunc("/users/{userId}/enrollments", handler.HandleUserEnrollments).Methods("GET").Name("user-enrollments")
	router.HandleFunc("/programs/{id}", handler.HandleGetProgram).Methods("GET").Name("program-get")
}

type enrollRequest struct {
	UserID        string `json:"userId"`
	ProgramID     int    `json:"programId"`
	ReplaceActive bool   `json:"replaceActive"`
}

type completeDayRequest struct {
	DayID     int    `json:"dayId"`
	SessionID *int   `json:"sessionId"`
	Notes     string `json:"notes"`
}

type skipDayRequest struct {
	DayID  int    `json:"dayId"`
	Reason string `json:"reason"`
}

type remarkDayRequest struct {
	Status CompletionStatus `json:"status"`
	Reason string           `json:"reason"`
	Notes  string           `json:"notes"`
}

type substitutionRequest struct {
	OriginalExerciseID   string `json:"originalExerciseId"`
	SubstituteExerciseID string `json:"substituteExerciseId"`
}

type clearSubstitutionResponse struct {
	Removed bool `json:"removed"`
}

func (handler *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.enroll")
	defer span.End()

	var req enrollRequest
	if err := decodeBody(r, &req, false); err != nil {
		log.Errorf("enroll, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ProgramID <= 0 {
		pkg.WriteJSONError(w, "userId and programId are required", http.StatusBadRequest)
		return
	}

	enrollment, err := handler.commands.Enroll(ctx, req.UserID, req.ProgramID, req.ReplaceActive)
	if err != nil {
		writeError(w, "enroll", err)
		return
	}

	pkg.WriteJSON(w, enrollment, http.StatusCreated)
}

func (handler *Handler) HandleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.enrollment")
	defer span.End()

	enrollmentID, err := pathInt(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	enrollment, err := handler.queries.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		writeError(w, "get enrollment", err)
		return
	}

	pkg.WriteJSON(w, enrollment, http.StatusOK)
}

func (handler *Handler) enrollmentCommand(
	name string,
	command func(ctx context.Context, enrollmentID int) (*Enrollment, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program."+name)
		defer span.End()

		enrollmentID, err := pathInt(r, "id")
		if err != nil {
			pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		enrollment, err := command(ctx, enrollmentID)
		if err != nil {
			writeError(w, name, err)
			return
		}

		pkg.WriteJSON(w, enrollment, http.StatusOK)
	}
}

func (handler *Handler) HandleCompleteDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.complete_day")
	defer span.End()

	enrollmentID, dayNumber, err := enrollmentDay(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req completeDayRequest
	if err := decodeBody(r, &req, true); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := handler.commands.CompleteDay(ctx, CompleteDayParams{
		EnrollmentID: enrollmentID,
		DayID:        req.DayID,
		DayNumber:    dayNumber,
		SessionID:    req.SessionID,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, "complete day", err)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

func (handler *Handler) HandleSkipDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.skip_day")
	defer span.End()

	enrollmentID, dayNumber, err := enrollmentDay(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req skipDayRequest
	if err := decodeBody(r, &req, true); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := handler.commands.SkipDay(ctx, SkipDayParams{
		EnrollmentID: enrollmentID,
		DayID:        req.DayID,
		DayNumber:    dayNumber,
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(w, "skip day", err)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

func (handler *Handler) HandleRemarkDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.remark_day")
	defer span.End()

	enrollmentID, dayNumber, err := enrollmentDay(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req remarkDayRequest
	if err := decodeBody(r, &req, false); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Status.IsValid() {
		pkg.WriteJSONError(w, fmt.Sprintf("invalid status [%s]", req.Status), http.StatusBadRequest)
		return
	}

	result, err := handler.commands.RemarkDay(ctx, RemarkDayParams{
		EnrollmentID: enrollmentID,
		DayNumber:    dayNumber,
		Status:       req.Status,
		Reason:       req.Reason,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, "remark day", err)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

func (handler *Handler) HandleSetSubstitution(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.set_substitution")
	defer span.End()

	enrollmentID, dayNumber, err := enrollmentDay(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req substitutionRequest
	if err := decodeBody(r, &req, false); err != nil {
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OriginalExerciseID == "" || req.SubstituteExerciseID == "" {
		pkg.WriteJSONError(w, "originalExerciseId and substituteExerciseId are required", http.StatusBadRequest)
		return
	}

	sub, err := handler.commands.SetDaySubstitution(ctx, SubstitutionParams{
		EnrollmentID:         enrollmentID,
		DayNumber:            dayNumber,
		OriginalExerciseID:   req.OriginalExerciseID,
		SubstituteExerciseID: req.SubstituteExerciseID,
	})
	if err != nil {
		writeError(w, "set substitution", err)
		return
	}

	pkg.WriteJSON(w, sub, http.StatusOK)
}

func (handler *Handler) HandleClearSubstitution(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.clear_substitution")
	defer span.End()

	enrollmentID, dayNumber, err := enrollmentDay(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	original := r.URL.Query().Get("originalExerciseId")
	if original == "" {
		pkg.WriteJSONError(w, "originalExerciseId is required", http.StatusBadRequest)
		return
	}

	removed, err := handler.commands.ClearDaySubstitution(ctx, SubstitutionKey{
		EnrollmentID:       enrollmentID,
		DayNumber:          dayNumber,
		OriginalExerciseID: original,
	})
	if err != nil {
		writeError(w, "clear substitution", err)
		return
	}

	pkg.WriteJSON(w, clearSubstitutionResponse{Removed: removed}, http.StatusOK)
}

func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.progress")
	defer span.End()

	enrollmentID, err := pathInt(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var loc *time.Location
	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			pkg.WriteJSONError(w, fmt.Sprintf("invalid timezone [%s]", tz), http.StatusBadRequest)
			return
		}
	}

	progress, err := handler.queries.Progress(ctx, enrollmentID, loc)
	if err != nil {
		writeError(w, "get progress", err)
		return
	}

	pkg.WriteJSON(w, progress, http.StatusOK)
}

func (handler *Handler) HandleDayWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.day_workout")
	defer span.End()

	enrollmentID, dayNumber, err := enrollmentDay(r)
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	workout, err := handler.workouts.BuildDayWorkout(ctx, enrollmentID, dayNumber)
	if err != nil {
		writeError(w, "build day workout", err)
		return
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleUserEnrollments(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.user_enrollments")
	defer span.End()

	enrollments, err := handler.queries.ListUserEnrollments(ctx, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, "list user enrollments", err)
		return
	}

	pkg.WriteJSON(w, enrollments, http.StatusOK)
}

func (handler *Handler) HandleGetProgram(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.program.get")
	defer span.End()

	programID, err := pathInt(r, "id")
	if err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	details, err := handler.queries.GetProgram(ctx, programID)
	if err != nil {
		writeError(w, "get program", err)
		return
	}

	pkg.WriteJSON(w, details, http.StatusOK)
}

// writeError maps domain errors to status codes. Messages of domain errors
// are meant for the user, store failures are logged and hidden.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		pkg.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		pkg.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidState):
		pkg.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case IsRetryable(err):
		log.Warnf("%s: %s", op, err)
		w.Header().Set("Retry-After", "1")
		pkg.WriteJSONError(w, op+" timed out, try again", http.StatusServiceUnavailable)
	default:
		log.Errorf("%s: %s", op, err)
		pkg.WriteJSONError(w, op+" failed", http.StatusInternalServerError)
	}
}

func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s [%s]", name, raw)
	}
	return v, nil
}

func enrollmentDay(r *http.Request) (int, int, error) {
	enrollmentID, err := pathInt(r, "id")
	if err != nil {
		return 0, 0, err
	}
	dayNumber, err := pathInt(r, "day")
	if err != nil {
		return 0, 0, err
	}
	return enrollmentID, dayNumber, nil
}
