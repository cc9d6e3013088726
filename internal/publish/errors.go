package publish

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsavedSession rejects publishes of a session that has never been
	// saved to disk.
	ErrUnsavedSession = errors.New("session has never been saved")

	// ErrMissingTask rejects a publish whose context carries no task while
	// the force-template policy is active.
	ErrMissingTask = errors.New("publish context has no task attached")

	// ErrNoWorkTemplate indicates no work template could be resolved from
	// settings or from the context.
	ErrNoWorkTemplate = errors.New("no work template resolved")

	// ErrTemplateMismatch indicates the session path does not conform to
	// the resolved work template.
	ErrTemplateMismatch = errors.New("session path does not match work template")

	// ErrVersionCollision indicates the next version of the work file
	// already exists on disk.
	ErrVersionCollision = errors.New("next version path already exists")

	// ErrNoPublishTemplate indicates no publish template could be resolved
	// from settings or from the context.
	ErrNoPublishTemplate = errors.New("no publish template resolved")

	// ErrMissingPublishData indicates the parent session item carries no
	// publish record, so dependent plugins cannot run.
	ErrMissingPublishData = errors.New("no publish record available on parent item")

	// ErrInvalidIdentifier indicates a take or camera name contains
	// characters outside [A-Za-z0-9_].
	ErrInvalidIdentifier = errors.New("name contains invalid characters")

	// ErrNoCameraSelected indicates a take has no camera selected for
	// rendering.
	ErrNoCameraSelected = errors.New("no camera selected")
)

// Remediation is a corrective action attached to a validation failure. The
// CLI surfaces it next to the error so the user can resolve the problem
// without digging through logs.
type Remediation struct {
	Label string
	Path  string
}

// CollisionError reports a version collision together with the first free
// version path the user can save to instead.
type CollisionError struct {
	// Occupied is the already-existing next version path.
	Occupied string
	// Remediation points at the first unoccupied version.
	Remediation Remediation
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%v: %s (next available: %s)", ErrVersionCollision, e.Occupied, e.Remediation.Path)
}

func (e *CollisionError) Unwrap() error {
	return ErrVersionCollision
}

// RemediationFor extracts the corrective action from an error chain, if any.
func RemediationFor(err error) (Remediation, bool) {
	var collision *CollisionError
	if errors.As(err, &collision) {
		return collision.Remediation, true
	}
	return Remediation{}, false
}
