package models

import "time"

// Metric is one daily observation for a user. WellnessScore stays nil until
// the metric has been scored and is serialized as null in that state.
type Metric struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ObservedAt    time.Time `json:"date"`
	Steps         int64     `json:"steps"`
	Calories      int64     `json:"calories"`
	SleepHours    float64   `json:"sleep_hours"`
	WellnessScore *float64  `json:"wellness_score"`
}

// Scored reports whether a wellness score has been stored for m.
func (m *Metric) Scored() bool { return m.WellnessScore != nil }
