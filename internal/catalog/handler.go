package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=catalog_mocks_test.go -package=catalog_test

type exerciseTypesRepo interface {
	GetExerciseType(ctx context.Context, exerciseTypeID string) (ExerciseType, error)
	ListExerciseTypes(ctx context.Context, params ListParams) ([]ExerciseType, error)
	AddExerciseType(ctx context.Context, exerciseType ExerciseType) error
}

type Handler struct {
	repo exerciseTypesRepo
}

func NewHandler(repo exerciseTypesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/exercises", handler.HandleList).Methods("GET").Name("catalog-list")
	router.HandleFunc("/exercises", handler.HandleAdd).Methods("POST").Name("catalog-add")
	router.HandleFunc("/exercises/{id}", handler.HandleGet).Methods("GET").Name("catalog-get")
	router.HandleFunc("/exercises/{id}/alternatives", handler.HandleAlternatives).Methods("GET").Name("catalog-alternatives")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.exercise_types.add")
	defer span.End()

	var exerciseType ExerciseType
	if err := json.NewDecoder(r.Body).Decode(&exerciseType); err != nil {
		log.Errorf("add exercise type, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if exerciseType.ID == "" || exerciseType.MuscleGroup == "" || exerciseType.Name == "" {
		pkg.WriteJSONError(w, "exercise id, muscle group and name are required", http.StatusBadRequest)
		return
	}

	exerciseType.MuscleGroup = strings.ToLower(exerciseType.MuscleGroup)
	if !IsValidMuscleGroup(exerciseType.MuscleGroup) {
		pkg.WriteJSONError(w, "invalid muscle group", http.StatusBadRequest)
		return
	}

	if exerciseType.CreatedAt.IsZero() {
		exerciseType.CreatedAt = time.Now()
	}

	if err := handler.repo.AddExerciseType(ctx, exerciseType); err != nil {
		log.Errorf("add exercise type: %s", err)
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteJSONError(w, "exercise type already exists", http.StatusConflict)
			return
		}
		pkg.WriteJSONError(w, "add exercise type failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise type added: %+v", exerciseType)
	pkg.WriteJSON(w, exerciseType, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.exercise_types.list")
	defer span.End()

	exerciseTypes, err := handler.repo.ListExerciseTypes(ctx, ListParams{
		MuscleGroup: r.URL.Query().Get("muscleGroup"),
	})
	if err != nil {
		log.Errorf("list exercise types: %s", err)
		pkg.WriteJSONError(w, "list exercise types failed", http.StatusInternalServerError)
		return
	}

	if exerciseTypes == nil {
		exerciseTypes = []ExerciseType{}
	}
	pkg.WriteJSON(w, exerciseTypes, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.exercise_types.get")
	defer span.End()

	exerciseType, err := handler.repo.GetExerciseType(ctx, mux.Vars(r)["id"])
	if err != nil {
		handler.writeErr(w, "get exercise type", err)
		return
	}

	pkg.WriteJSON(w, exerciseType, http.StatusOK)
}

func (handler *Handler) HandleAlternatives(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.exercise_types.alternatives")
	defer span.End()

	alternatives, err := Alternatives(ctx, handler.repo, mux.Vars(r)["id"])
	if err != nil {
		handler.writeErr(w, "get alternatives", err)
		return
	}

	if alternatives == nil {
		alternatives = []ExerciseType{}
	}
	pkg.WriteJSON(w, alternatives, http.StatusOK)
}

func (handler *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrExerciseTypeNotFound) {
		pkg.WriteJSONError(w, "exercise type not found", http.StatusNotFound)
		return
	}
	log.Errorf("%s: %s", op, err)
	pkg.WriteJSONError(w, op+" failed", http.StatusInternalServerError)
}
