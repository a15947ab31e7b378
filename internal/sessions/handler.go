package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=sessions_mocks_test.go -package=sessions_test

type sessionsRepo interface {
	Start(ctx context.Context, enrollmentID, programDayID int, startedAt time.Time) (*Session, error)
	Finish(ctx context.Context, sessionID int, finishedAt time.Time) (*Session, error)
	Get(ctx context.Context, sessionID int) (*Session, error)
}

// dayRecorder completes the program day a session was performed for. It is
// called before the session is marked finished.
type dayRecorder interface {
	RecordSessionDay(ctx context.Context, session Session) error
}

type Handler struct {
	repo     sessionsRepo
	recorder dayRecorder
	clock    clock.Clock
}

// NewHandler creates the sessions handler. recorder may be nil, then finishing
// a session leaves the program day untouched.
func NewHandler(repo sessionsRepo, recorder dayRecorder, clk clock.Clock) *Handler {
	return &Handler{
		repo:     repo,
		recorder: recorder,
		clock:    clk,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/start", handler.HandleStart).Methods("POST").Name("session-start")
	router.HandleFunc("/{id}/finish", handler.HandleFinish).Methods("POST").Name("session-finish")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET").Name("session-get")
}

type startRequest struct {
	EnrollmentID int `json:"enrollmentId"`
	ProgramDayID int `json:"programDayId"`
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.start")
	defer span.End()

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("start session, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.EnrollmentID <= 0 || req.ProgramDayID <= 0 {
		pkg.WriteJSONError(w, "enrollmentId and programDayId are required", http.StatusBadRequest)
		return
	}

	session, err := handler.repo.Start(ctx, req.EnrollmentID, req.ProgramDayID, handler.clock.Now())
	if err != nil {
		if errors.Is(err, ErrUnknownReference) {
			pkg.WriteJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("start session: %s", err)
		pkg.WriteJSONError(w, "start session failed", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.Int("session_id", session.ID))
	pkg.WriteJSON(w, session, http.StatusCreated)
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.finish")
	defer span.End()

	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteJSONError(w, "invalid session id", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.Int("session_id", sessionID))

	session, err := handler.repo.Get(ctx, sessionID)
	if err != nil {
		writeRepoError(w, "finish session", err)
		return
	}
	if session.Finished() {
		pkg.WriteJSON(w, session, http.StatusOK)
		return
	}

	if handler.recorder != nil {
		if err := handler.recorder.RecordSessionDay(ctx, *session); err != nil {
			if isRetryable(err) {
				pkg.WriteJSONError(w, "finish session timed out, try again", http.StatusServiceUnavailable)
				return
			}
			log.Errorf("finish session [%d], record day: %s", sessionID, err)
			pkg.WriteJSONError(w, "finish session failed", http.StatusInternalServerError)
			return
		}
	}

	session, err = handler.repo.Finish(ctx, sessionID, handler.clock.Now())
	if err != nil {
		writeRepoError(w, "finish session", err)
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteJSONError(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := handler.repo.Get(ctx, sessionID)
	if err != nil {
		writeRepoError(w, "get session", err)
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

func isRetryable(err error) bool {
	var retryable interface{ Retryable() bool }
	return errors.Is(err, context.DeadlineExceeded) || errors.As(err, &retryable) && retryable.Retryable()
}

func writeRepoError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		pkg.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	log.Errorf("%s: %s", op, err)
	pkg.WriteJSONError(w, op+" failed", http.StatusInternalServerError)
}
