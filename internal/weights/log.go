package weights

import (
	"time"
)

// Log is one performed set: how much was lifted, how many times.
type Log struct {
	ID         int       `json:"id"`
	UserID     string    `json:"userId"`
	ExerciseID string    `json:"exerciseId"`
	Kilos      float64   `json:"kilos"`
	Reps       int       `json:"reps"`
	CreatedAt  time.Time `json:"createdAt"`
}
