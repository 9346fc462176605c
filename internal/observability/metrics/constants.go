// Package metrics defines the Prometheus collectors for the identification service.
package metrics

// Stage label values
const (
	StageStage1 = "stage1"
	StageStage2 = "stage2"
)

// Outcome label values for identification requests
const (
	OutcomeIdentified = "identified"
	OutcomeRejected   = "rejected"
	OutcomeReview     = "needs_review"
	OutcomeError      = "error"
)

// Error class label values, shared by the gateway and the API
const (
	ClassSuccess     = "success"
	ClassTransient   = "transient"
	ClassRateLimited = "rate_limited"
	ClassPermanent   = "permanent"
	ClassConfig      = "config"
	ClassInput       = "input"
	ClassCanceled    = "canceled"
)

// Histogram bucket configuration
const (
	// BucketStart10ms covers 10ms to ~40s with factor 2 and 12 buckets
	BucketStart10ms = 0.01
	// BucketStart100ms covers 100ms to ~100s with factor 2 and 10 buckets
	BucketStart100ms = 0.1
	// BucketStart1KB covers 1KB to ~16MB with factor 4 and 8 buckets
	BucketStart1KB = 1024.0

	BucketFactor2 = 2
	BucketFactor4 = 4

	BucketCount8  = 8
	BucketCount10 = 10
	BucketCount12 = 12
)
