package host

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"slate/internal/fileutil"
)

// FileSession treats an on-disk scene file as the open session. It backs
// headless publishes where no authoring application is running: saves become
// file copies and the take list defaults to one take named after the file.
type FileSession struct {
	mu      sync.Mutex
	path    string
	cameras []Camera
	takes   []Take
}

var _ Session = (*FileSession)(nil)

// FileSessionOption configures a FileSession.
type FileSessionOption func(*FileSession)

// WithCameras sets the cameras the session reports.
func WithCameras(cameras []Camera) FileSessionOption {
	return func(s *FileSession) {
		s.cameras = cameras
	}
}

// WithTakes sets the takes the session reports.
func WithTakes(takes []Take) FileSessionOption {
	return func(s *FileSession) {
		s.takes = takes
	}
}

// NewFileSession creates a session backed by the given file. An empty path
// models a never-saved session.
func NewFileSession(path string, opts ...FileSessionOption) *FileSession {
	session := &FileSession{path: strings.TrimSpace(path)}
	for _, opt := range opts {
		opt(session)
	}
	if session.cameras == nil {
		session.cameras = []Camera{{Name: PerspectiveCameraName, SystemCamera: true}}
	}
	if session.takes == nil && session.path != "" {
		base := filepath.Base(session.path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		session.takes = []Take{{Name: name}}
	}
	return session
}

// Path returns the session file path, or empty when unsaved.
func (s *FileSession) Path(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, nil
}

// Save copies the session file to the given path and makes that path the
// current one. Saving to the current path is a no-op.
func (s *FileSession) Save(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == s.path || s.path == "" {
		s.path = path
		return nil
	}
	if err := fileutil.CopyFile(s.path, path); err != nil {
		return err
	}
	s.path = path
	return nil
}

// Cameras returns the configured camera list.
func (s *FileSession) Cameras(context.Context) ([]Camera, error) {
	return s.cameras, nil
}

// Takes returns the configured take list.
func (s *FileSession) Takes(context.Context) ([]Take, error) {
	return s.takes, nil
}
