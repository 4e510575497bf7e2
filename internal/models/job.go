package models

// JobStatus represents the status of an extraction job.
//
// Progression: pending -> extracting -> extracted -> confirmed ->
// generated, with error possible at any stage.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusExtracting JobStatus = "extracting"
	JobStatusExtracted  JobStatus = "extracted"
	JobStatusConfirmed  JobStatus = "confirmed"
	JobStatusGenerated  JobStatus = "generated"
	JobStatusError      JobStatus = "error"
)
