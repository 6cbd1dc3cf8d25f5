package httpapi

import "time"

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createUserResponse struct {
	Message string `json:"message"`
	User    int64  `json:"user"`
}

// metricRequest accepts both the short and the legacy field names.
type metricRequest struct {
	Steps               *int64     `json:"steps"`
	Calories            *int64     `json:"calories"`
	CaloriesBurntPerDay *int64     `json:"calories_burnt_per_day"`
	SleepHrs            *float64   `json:"sleep_hrs"`
	SleepHours          *float64   `json:"sleep_hours"`
	Date                *time.Time `json:"date"`
}

type ingestResponse struct {
	Message  string `json:"message"`
	MetricID int64  `json:"metric_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type deleteAllResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

type scoreRequest struct {
	WellnessScore *float64 `json:"wellness_score"`
}

// errorResponse carries metric_id and score only for score_persist_failed,
// so the client can PUT the score back without rescoring.
type errorResponse struct {
	Error    string   `json:"error"`
	Detail   string   `json:"detail"`
	MetricID *int64   `json:"metric_id,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}
