package weights

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/progression/internal/program"
	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	suggester program.WeightSuggester
}

func NewHandler(suggester program.WeightSuggester) *Handler {
	return &Handler{
		suggester: suggester,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/suggestion", handler.HandleSuggestion).Methods("GET").Name("weights-suggestion")
}

type suggestionResponse struct {
	ExerciseID string  `json:"exerciseId"`
	Reps       int     `json:"reps"`
	Kilos      float64 `json:"kilos"`
	// false when there is not enough recent history
	HasSuggestion bool `json:"hasSuggestion"`
}

func (handler *Handler) HandleSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weights.suggestion")
	defer span.End()

	q := r.URL.Query()
	userID, exerciseID := q.Get("userId"), q.Get("exerciseId")
	reps, err := strconv.Atoi(q.Get("reps"))
	if userID == "" || exerciseID == "" || err != nil || reps <= 0 {
		pkg.WriteJSONError(w, "userId, exerciseId and a positive reps are required", http.StatusBadRequest)
		return
	}
	sets, _ := strconv.Atoi(q.Get("sets"))

	kilos, err := handler.suggester.SuggestNextWeight(
		ctx,
		program.Progression{UserID: userID, ExerciseID: exerciseID},
		program.ExerciseTarget{ExerciseID: exerciseID, Sets: sets, Reps: reps},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			pkg.WriteJSONError(w, "suggestion timed out, try again", http.StatusServiceUnavailable)
			return
		}
		log.Errorf("suggest weight: %s", err)
		pkg.WriteJSONError(w, "suggest weight failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, suggestionResponse{
		ExerciseID:    exerciseID,
		Reps:          reps,
		Kilos:         kilos,
		HasSuggestion: kilos > 0,
	}, http.StatusOK)
}
