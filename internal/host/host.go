// Package host abstracts the authoring application's scripting surface: the
// open session file, its takes, and the scene cameras. Two implementations
// exist, an HTTP bridge to the application's remote-script gateway and a
// file-backed session for headless publishes.
package host

import "context"

// Camera describes a scene camera.
type Camera struct {
	Name         string `json:"name"`
	SystemCamera bool   `json:"system_camera"`
}

// Take is a named recorded performance within a session.
type Take struct {
	Name string `json:"name"`
}

// PerspectiveCameraName is the built-in camera the host cannot delete; it is
// the safe fallback when a scene has no user cameras.
const PerspectiveCameraName = "Producer Perspective"

// Session is the host-session surface the publish pipeline consumes. All
// calls are blocking and must run serially; the host scripting engine is not
// thread safe.
type Session interface {
	// Path returns the session file path, or empty when the session has
	// never been saved.
	Path(ctx context.Context) (string, error)
	// Save writes the session to the given path. Saving to the current
	// path is idempotent.
	Save(ctx context.Context, path string) error
	Cameras(ctx context.Context) ([]Camera, error)
	Takes(ctx context.Context) ([]Take, error)
}
