package history

import "time"

// JobStatus represents the lifecycle of a render job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusSubmitting JobStatus = "submitting"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusFailed     JobStatus = "failed"
	JobStatusReview     JobStatus = "review"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:     {JobStatusSubmitting},
	JobStatusSubmitting: {JobStatusSubmitted, JobStatusFailed, JobStatusReview},
	JobStatusFailed:     {JobStatusQueued},
	JobStatusReview:     {JobStatusQueued},
}

// CanTransition reports whether a render job may move from one status to
// another. Identical statuses are always allowed so updates that only touch
// payload fields do not need special casing.
func CanTransition(from, to JobStatus) bool {
	if from == to {
		return true
	}
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PublishRecord is a locally persisted copy of a publish registered with the
// tracking system.
type PublishRecord struct {
	ID          int64
	RunID       string
	Name        string
	Path        string
	PublishPath string
	Version     int
	Template    string
	EntityType  string
	EntityID    int64
	TrackingID  int64
	CreatedAt   time.Time
}

// RenderJob is a queued render/upload request for one take.
type RenderJob struct {
	ID              string
	PublishRecordID int64
	TrackingID      int64
	Take            string
	Cameras         []string
	RenderLocal     bool
	Status          JobStatus
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SubmittedAt     *time.Time
}
