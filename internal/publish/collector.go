package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"slate/internal/host"
	"slate/internal/logging"
	"slate/internal/tracking"
)

// UnsavedSessionName labels the root item when the session has never been
// saved.
const UnsavedSessionName = "Untitled Session"

// Collector builds the publish item tree from the open host session: one
// session item at the root and one child item per take.
type Collector struct {
	session      host.Session
	workTemplate string
	logger       *slog.Logger
}

// NewCollector creates a collector. The work template name, when not empty,
// is stashed on the session item for the session plugin to pick up.
func NewCollector(session host.Session, workTemplate string, logger *slog.Logger) *Collector {
	return &Collector{
		session:      session,
		workTemplate: workTemplate,
		logger:       logging.NewComponentLogger(logger, "collector"),
	}
}

// Collect enumerates the session and returns the item tree. An unsaved
// session still yields a session item; validation rejects it later with a
// save prompt rather than hiding it here.
func (c *Collector) Collect(ctx context.Context, pubCtx tracking.Context) (*Item, error) {
	path, err := c.session.Path(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session path: %w", err)
	}

	name := UnsavedSessionName
	if path != "" {
		name = filepath.Base(path)
	}

	root := NewItem(ItemTypeSession, name)
	root.Context = &pubCtx
	root.Properties[PropPath] = path
	if c.workTemplate != "" {
		root.Properties[PropWorkTemplate] = c.workTemplate
	}

	cameras, err := c.session.Cameras(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate cameras: %w", err)
	}
	candidates := candidateCameras(cameras)
	if len(candidates) == 0 {
		c.logger.Warn("scene has no usable cameras, take items will have no selection")
	}

	takes, err := c.session.Takes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate takes: %w", err)
	}
	for _, take := range takes {
		item := NewItem(ItemTypeTake, take.Name)
		item.Properties[PropTake] = take.Name
		selection := make(map[string]bool, len(candidates))
		for _, camera := range candidates {
			selection[camera] = true
		}
		item.Properties[PropCameras] = selection
		root.AddChild(item)
	}

	c.logger.Debug("collected session",
		logging.String("session", name),
		logging.Int("takes", len(takes)),
		logging.Int("cameras", len(candidates)))
	return root, nil
}

// candidateCameras returns the user camera names, falling back to the
// built-in perspective camera when the scene has none.
func candidateCameras(cameras []host.Camera) []string {
	names := make([]string, 0, len(cameras))
	for _, camera := range cameras {
		if !camera.SystemCamera {
			names = append(names, camera.Name)
		}
	}
	if len(names) > 0 {
		return names
	}
	for _, camera := range cameras {
		if camera.Name == host.PerspectiveCameraName {
			return []string{camera.Name}
		}
	}
	return nil
}
