//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/2beens/progression/internal/program"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) do(ctx context.Context, method, path string, body any, out any) int {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAPISecret)

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(respBytes, out), string(respBytes))
	}
	return resp.StatusCode
}

func (s *IntegrationTestSuite) enroll(ctx context.Context, userID string) *program.Enrollment {
	var enrollment program.Enrollment
	status := s.do(ctx, http.MethodPost, "/enrollments", map[string]any{
		"userId":    userID,
		"programId": seedProgramID,
	}, &enrollment)
	s.Require().Equal(http.StatusCreated, status)
	return &enrollment
}

func (s *IntegrationTestSuite) TestEnrollmentLifecycle() {
	ctx := context.Background()
	t := s.T()
	userID := gofakeit.UUID()

	enrollment := s.enroll(ctx, userID)
	assert.Equal(t, program.StatusEnrolled, enrollment.Status)

	enrollmentPath := "/enrollments/" + strconv.Itoa(enrollment.ID)
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodPost, enrollmentPath+"/start", nil, enrollment))
	assert.Equal(t, program.StatusActive, enrollment.Status)

	var result program.DayResult
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodPost, dayPath(enrollment.ID, 1, "complete"), map[string]any{
		"dayId": 1,
		"notes": "felt strong",
	}, &result))
	assert.Equal(t, program.DayStateCompletedToday, result.DayState)
	assert.Equal(t, 1, result.Enrollment.TotalDaysCompleted)

	// completing the same day again is an invalid state, not a second record
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(ctx, http.MethodPost, dayPath(enrollment.ID, 1, "complete"), map[string]any{
		"dayId": 1,
	}, nil))

	var progress program.Progress
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodGet, enrollmentPath+"/progress", nil, &progress))
	require.Len(t, progress.Days, 7)
	assert.Equal(t, program.DayStateCompletedToday, progress.Days[0].State)
	assert.Equal(t, 1, progress.Summary.Completed)
	assert.Equal(t, 1, progress.Summary.CurrentStreak)

	summaryKey := "progression::summary::" + strconv.Itoa(enrollment.ID)
	exists, err := s.redisClient.Exists(ctx, summaryKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "progress summary is cached")
	generationKey := "progression::summary-gen::" + strconv.Itoa(enrollment.ID)
	generation, err := s.redisClient.Get(ctx, generationKey).Int64()
	require.NoError(t, err)

	var sub program.DaySubstitution
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodPut, dayPath(enrollment.ID, 3, "substitutions"), map[string]any{
		"originalExerciseId":   "squat",
		"substituteExerciseId": "leg-press",
	}, &sub))
	assert.Equal(t, "leg-press", sub.SubstituteExerciseID)

	exists, err = s.redisClient.Exists(ctx, summaryKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists, "mutation drops the cached summary")
	nextGeneration, err := s.redisClient.Get(ctx, generationKey).Int64()
	require.NoError(t, err)
	assert.Equal(t, generation+1, nextGeneration)

	var workout program.DayWorkout
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodGet, dayPath(enrollment.ID, 3, "workout"), nil, &workout))
	require.Len(t, workout.Exercises, 2)
	assert.Equal(t, "leg-press", workout.Exercises[0].ExerciseID)
	assert.True(t, workout.Exercises[0].Substituted)
	assert.Equal(t, "squat", workout.Exercises[0].OriginalExerciseID)

	// substitutions are scoped to the day number
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodGet, dayPath(enrollment.ID, 2, "workout"), nil, &workout))
	assert.Equal(t, "squat", workout.Exercises[0].ExerciseID)
	assert.False(t, workout.Exercises[0].Substituted)

	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodPost, enrollmentPath+"/cancel", nil, enrollment))
	assert.Equal(t, program.StatusCancelled, enrollment.Status)
}

func (s *IntegrationTestSuite) TestOneActiveEnrollmentPerUser() {
	ctx := context.Background()
	t := s.T()
	userID := gofakeit.UUID()

	first := s.enroll(ctx, userID)

	assert.Equal(t, http.StatusConflict, s.do(ctx, http.MethodPost, "/enrollments", map[string]any{
		"userId":    userID,
		"programId": seedProgramID,
	}, nil))

	var second program.Enrollment
	require.Equal(t, http.StatusCreated, s.do(ctx, http.MethodPost, "/enrollments", map[string]any{
		"userId":        userID,
		"programId":     seedProgramID,
		"replaceActive": true,
	}, &second))
	assert.NotEqual(t, first.ID, second.ID)

	var enrollments []program.Enrollment
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodGet, "/users/"+userID+"/enrollments", nil, &enrollments))
	require.Len(t, enrollments, 2)
	statuses := map[int]program.EnrollmentStatus{}
	for _, e := range enrollments {
		statuses[e.ID] = e.Status
	}
	assert.Equal(t, program.StatusCancelled, statuses[first.ID])
	assert.Equal(t, program.StatusEnrolled, statuses[second.ID])
}

func (s *IntegrationTestSuite) TestWorkoutWeightSuggestion() {
	ctx := context.Background()
	t := s.T()
	userID := gofakeit.UUID()

	// exercise_log is written by the set logging side of the app
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exercise_log (user_id, exercise_id, kilos, reps, created_at) VALUES ($1, 'squat', 100, 5, now() - interval '2 days')`,
		userID,
	)
	require.NoError(t, err)

	enrollment := s.enroll(ctx, userID)

	var workout program.DayWorkout
	require.Equal(t, http.StatusOK, s.do(ctx, http.MethodGet, dayPath(enrollment.ID, 1, "workout"), nil, &workout))
	require.Len(t, workout.Exercises, 2)
	require.NotNil(t, workout.Exercises[0].SuggestedKilos)
	assert.InDelta(t, 100.0, *workout.Exercises[0].SuggestedKilos, 0.001)
	assert.Nil(t, workout.Exercises[1].SuggestedKilos, "no bench history")
}
