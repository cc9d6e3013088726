package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"slate/internal/history"
	"slate/internal/logging"
	"slate/internal/notifications"
)

// Render plugin setting names.
const (
	SettingRenderLocal = "render_local"
)

// identifierPattern is the strict name rule the render farm imposes on take
// and camera names.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]*$`)

// RenderPlugin queues a render/upload job per take. It depends on the
// session plugin having run first: the parent item must carry the tracking
// publish record id.
type RenderPlugin struct {
	store       *history.Store
	renderLocal bool
	notifier    notifications.Service
	logger      *slog.Logger
}

var _ Plugin = (*RenderPlugin)(nil)

// NewRenderPlugin creates the render plugin. The renderLocal flag is the
// default for the plugin's setting of the same name; the notifier may be
// nil.
func NewRenderPlugin(store *history.Store, renderLocal bool, notifier notifications.Service, logger *slog.Logger) (*RenderPlugin, error) {
	if store == nil {
		return nil, errors.New("render plugin requires a history store")
	}
	return &RenderPlugin{
		store:       store,
		renderLocal: renderLocal,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "render-plugin"),
	}, nil
}

func (p *RenderPlugin) Name() string {
	return "render-take"
}

func (p *RenderPlugin) ItemFilters() []string {
	return []string{"mocap.take"}
}

func (p *RenderPlugin) SettingSpecs() map[string]SettingSpec {
	return map[string]SettingSpec{
		SettingRenderLocal: {
			Type:        SettingBool,
			Default:     p.renderLocal,
			Description: "Render on this machine instead of submitting to the farm.",
		},
	}
}

// Accept takes a take item only when it has at least one candidate camera.
func (p *RenderPlugin) Accept(ctx context.Context, settings Settings, item *Item) (Acceptance, error) {
	if len(item.CameraSelection()) == 0 {
		logging.WithContext(ctx, p.logger).Debug("take has no candidate cameras, skipping",
			logging.String(PropTake, item.Name))
		return Acceptance{}, nil
	}
	return Acceptance{Accepted: true, Checked: true, Enabled: true, Visible: true}, nil
}

// Validate enforces the farm's identifier rule on the take name and every
// selected camera name, and requires at least one selected camera.
func (p *RenderPlugin) Validate(ctx context.Context, settings Settings, item *Item) error {
	take := item.StringProperty(PropTake)
	if !identifierPattern.MatchString(take) {
		return fmt.Errorf("%w: take %q", ErrInvalidIdentifier, take)
	}

	selected := selectedCameras(item.CameraSelection())
	if len(selected) == 0 {
		return fmt.Errorf("%w: take %q", ErrNoCameraSelected, take)
	}
	for _, camera := range selected {
		if !identifierPattern.MatchString(camera) {
			return fmt.Errorf("%w: camera %q", ErrInvalidIdentifier, camera)
		}
	}
	return nil
}

// Publish queues a render job referencing the parent session's publish
// record. Without that record the plugin fails fast; it never renders an
// unregistered file.
func (p *RenderPlugin) Publish(ctx context.Context, settings Settings, item *Item) error {
	parent := item.Parent()
	if parent == nil {
		return ErrMissingPublishData
	}
	trackingID := parent.Int64Property(PropTrackingPublishID)
	if trackingID == 0 {
		return fmt.Errorf("%w: publish the session first", ErrMissingPublishData)
	}

	job := history.RenderJob{
		ID:              uuid.NewString(),
		PublishRecordID: parent.Int64Property(PropHistoryPublishID),
		TrackingID:      trackingID,
		Take:            item.StringProperty(PropTake),
		Cameras:         selectedCameras(item.CameraSelection()),
		RenderLocal:     settings.Bool(SettingRenderLocal),
	}
	queued, err := p.store.EnqueueRenderJob(ctx, job)
	if err != nil {
		return fmt.Errorf("queue render job: %w", err)
	}

	logging.WithContext(ctx, p.logger).Info("render job queued",
		logging.String("job_id", queued.ID),
		logging.String(PropTake, job.Take),
		logging.Int("cameras", len(job.Cameras)),
		logging.Bool(SettingRenderLocal, job.RenderLocal))
	if p.notifier != nil {
		_ = p.notifier.NotifyRenderQueued(ctx, job.Take, len(job.Cameras))
	}
	return nil
}

// Finalize is a no-op; the queued job is picked up by the jobs worker.
func (p *RenderPlugin) Finalize(ctx context.Context, settings Settings, item *Item) error {
	return nil
}

func selectedCameras(selection map[string]bool) []string {
	cameras := make([]string, 0, len(selection))
	for name, checked := range selection {
		if checked {
			cameras = append(cameras, name)
		}
	}
	sort.Strings(cameras)
	return cameras
}
