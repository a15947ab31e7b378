package weights

import (
	"context"
	"math"
	"time"

	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/program"
	"github.com/2beens/progression/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultRoundingKg = 2.5
	// only the recent past says something about the current strength
	historyLimit = 20
	historyAge   = 8 * 7 * 24 * time.Hour
)

type logsRepo interface {
	Recent(ctx context.Context, userID, exerciseID string, limit int) ([]Log, error)
}

// Suggester proposes a working weight from the best estimated one-rep max of
// the recent logs, converted back to the target rep count.
type Suggester struct {
	repo       logsRepo
	clock      clock.Clock
	roundingKg float64
}

var _ program.WeightSuggester = (*Suggester)(nil)

func NewSuggester(repo logsRepo, clk clock.Clock, roundingKg float64) *Suggester {
	if roundingKg <= 0 {
		roundingKg = defaultRoundingKg
	}
	return &Suggester{
		repo:       repo,
		clock:      clk,
		roundingKg: roundingKg,
	}
}

func (s *Suggester) SuggestNextWeight(ctx context.Context, p program.Progression, target program.ExerciseTarget) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weights.suggest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("exercise_id", target.ExerciseID),
		attribute.Int("reps", target.Reps),
	)

	if target.Reps <= 0 {
		return 0, nil
	}

	logs, err := s.repo.Recent(ctx, p.UserID, p.ExerciseID, historyLimit)
	if err != nil {
		return 0, err
	}

	cutoff := s.clock.Now().Add(-historyAge)
	best := 0.0
	for _, l := range logs {
		if l.CreatedAt.Before(cutoff) {
			continue
		}
		best = max(best, EstimateOneRepMax(l.Kilos, l.Reps))
	}
	if best == 0 {
		return 0, nil
	}

	return s.round(WeightForReps(best, target.Reps)), nil
}

func (s *Suggester) round(kilos float64) float64 {
	return math.Round(kilos/s.roundingKg) * s.roundingKg
}

// EstimateOneRepMax uses the Epley formula. A single is its own max.
func EstimateOneRepMax(kilos float64, reps int) float64 {
	if reps <= 1 {
		return kilos
	}
	return kilos * (1 + float64(reps)/30)
}

// WeightForReps inverts EstimateOneRepMax.
func WeightForReps(oneRepMax float64, reps int) float64 {
	if reps <= 1 {
		return oneRepMax
	}
	return oneRepMax / (1 + float64(reps)/30)
}
