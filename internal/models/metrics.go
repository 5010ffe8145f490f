package models

import "time"

// Intake outcome labels.
const (
	IntakeOutcomeAccepted             = "accepted"
	IntakeOutcomeValidationFailed     = "validation_failed"
	IntakeOutcomeClassificationFailed = "classification_failed"
	IntakeOutcomeStorageFailed        = "storage_failed"
)

// SystemMetrics is the JSON summary of process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	OracleCalls              uint64    `json:"oracleCalls"`
	OracleFailures           uint64    `json:"oracleFailures"`
	IntakeAccepted           uint64    `json:"intakeAccepted"`
	IntakeRejected           uint64    `json:"intakeRejected"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
