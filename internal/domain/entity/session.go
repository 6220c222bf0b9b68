package entity

import "time"

// RoleSession identifies an assumed cross-account role scoped to cost-read
// access in a sandbox account.
type RoleSession struct {
	AccountID string
	RoleARN   string
	ExpiresAt time.Time
}

// StoredObject describes an uploaded report artifact.
type StoredObject struct {
	Bucket         string
	Key            string
	ChecksumSHA256 string
}

// CollectionMetrics captures the business metrics emitted after a
// collection run completes.
type CollectionMetrics struct {
	AccountID     string
	TotalCost     float64
	ResourceCount int
	Duration      time.Duration
}
