package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"slate/internal/fileutil"
	"slate/internal/history"
	"slate/internal/host"
	"slate/internal/logging"
	"slate/internal/services"
	"slate/internal/template"
	"slate/internal/tracking"
	"slate/internal/version"
)

// Session plugin setting names.
const (
	SettingForceTemplate   = "force_template"
	SettingWorkTemplate    = "work_template"
	SettingPublishTemplate = "publish_template"
)

// TemplateSelector resolves template names from a publish context. Satisfied
// by tracking.Selector.
type TemplateSelector interface {
	SelectTemplates(ctx context.Context, pubCtx tracking.Context) (tracking.TemplatePair, error)
}

// SessionPluginDeps collects the collaborators the session plugin needs.
type SessionPluginDeps struct {
	Session   host.Session
	Templates *template.Registry
	Selector  TemplateSelector
	Tracker   tracking.API
	// Store persists a local copy of each registered publish. Optional;
	// nil disables local history.
	Store *history.Store
	// ProjectRoot anchors relative template paths. Template patterns are
	// project-relative; a resolved publish path joins onto this root.
	ProjectRoot string
	Logger      *slog.Logger
	// Exists overrides the disk existence probe, for tests. Defaults to
	// os.Stat.
	Exists func(string) bool
}

// SessionPlugin publishes the session file itself: it validates the saved
// path against the pipeline templates, guards against version collisions,
// registers the publish with the tracking system, then bumps the work file
// to the next version.
type SessionPlugin struct {
	session     host.Session
	templates   *template.Registry
	selector    TemplateSelector
	tracker     tracking.API
	store       *history.Store
	projectRoot string
	logger      *slog.Logger
	exists      func(string) bool
}

var _ Plugin = (*SessionPlugin)(nil)

// NewSessionPlugin creates the session publish plugin.
func NewSessionPlugin(deps SessionPluginDeps) (*SessionPlugin, error) {
	if deps.Session == nil {
		return nil, errors.New("session plugin requires a host session")
	}
	if deps.Templates == nil {
		return nil, errors.New("session plugin requires a template registry")
	}
	if deps.Tracker == nil {
		return nil, errors.New("session plugin requires a tracking client")
	}
	exists := deps.Exists
	if exists == nil {
		exists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	return &SessionPlugin{
		session:     deps.Session,
		templates:   deps.Templates,
		selector:    deps.Selector,
		tracker:     deps.Tracker,
		store:       deps.Store,
		projectRoot: deps.ProjectRoot,
		logger:      logging.NewComponentLogger(deps.Logger, "session-plugin"),
		exists:      exists,
	}, nil
}

func (p *SessionPlugin) Name() string {
	return "publish-session"
}

func (p *SessionPlugin) ItemFilters() []string {
	return []string{"mocap.session"}
}

func (p *SessionPlugin) SettingSpecs() map[string]SettingSpec {
	return map[string]SettingSpec{
		SettingForceTemplate: {
			Type:        SettingBool,
			Default:     false,
			Description: "Reject publishes whose paths do not conform to the pipeline templates.",
		},
		SettingWorkTemplate: {
			Type:        SettingString,
			Default:     "",
			Description: "Work template name; overrides the context-derived template.",
		},
		SettingPublishTemplate: {
			Type:        SettingString,
			Default:     "",
			Description: "Publish template name; overrides the context-derived template.",
		},
	}
}

// Accept takes every session item. Unsaved sessions are accepted too; the
// validate phase rejects them with a save prompt instead of silently hiding
// the item.
func (p *SessionPlugin) Accept(ctx context.Context, settings Settings, item *Item) (Acceptance, error) {
	logger := logging.WithContext(ctx, p.logger)
	if item.StringProperty(PropPath) == "" {
		logger.Warn("session has not been saved, publish will require a save")
	}
	return Acceptance{Accepted: true, Checked: true, Enabled: true, Visible: true}, nil
}

// Validate runs the pre-publish checks in a fixed order: saved path, task
// attachment, work template resolution and conformance, version collision
// probe, publish template resolution. The first failure rejects the task.
func (p *SessionPlugin) Validate(ctx context.Context, settings Settings, item *Item) error {
	logger := logging.WithContext(ctx, p.logger)
	force := settings.Bool(SettingForceTemplate)

	sessionPath := template.Normalize(item.StringProperty(PropPath))
	if sessionPath == "" || sessionPath == "." {
		return fmt.Errorf("%w: save the session before publishing", ErrUnsavedSession)
	}
	item.Properties[PropPath] = sessionPath

	if force && (item.Context == nil || !item.Context.HasTask()) {
		return fmt.Errorf("%w: template enforcement needs a task to derive templates from", ErrMissingTask)
	}

	workName, publishName, templateErr := p.resolveTemplateNames(ctx, settings, item, force)
	if templateErr != nil && !errors.Is(templateErr, ErrNoPublishTemplate) {
		return templateErr
	}

	if workName == "" {
		logger.Debug("no work template configured, skipping template checks")
	} else {
		matches, err := p.templates.Matches(workName, sessionPath)
		if err != nil {
			return err
		}
		if !matches {
			if force {
				return fmt.Errorf("%w: %s does not match %s", ErrTemplateMismatch, sessionPath, workName)
			}
			logger.Warn("session path does not match work template",
				logging.String("path", sessionPath),
				logging.String(PropWorkTemplate, workName))
		} else {
			item.Properties[PropWorkTemplate] = workName
		}
	}

	if err := p.probeVersionCollision(item, sessionPath, logger); err != nil {
		return err
	}

	// Publish-template resolution failures are held back until here so a
	// version collision surfaces first, with its remediation.
	if templateErr != nil {
		return templateErr
	}

	publishPath, err := p.resolvePublishPath(item, sessionPath, workName, publishName, force)
	if err != nil {
		return err
	}
	item.Properties[PropPublishPath] = publishPath

	logger.Debug("session validated",
		logging.String("path", sessionPath),
		logging.String(PropPublishPath, publishPath))
	return nil
}

// resolveTemplateNames applies the precedence rule for both template names:
// explicit setting, else item property, else the context selector when the
// force policy demands templates. Selector failures are fatal only under
// force, since nothing else can supply a template then. When only the
// publish name is missing, the resolved work name is returned alongside the
// error so the caller can finish its work-template checks first.
func (p *SessionPlugin) resolveTemplateNames(ctx context.Context, settings Settings, item *Item, force bool) (string, string, error) {
	workName := settings.String(SettingWorkTemplate)
	if workName == "" {
		workName = item.StringProperty(PropWorkTemplate)
	}
	publishName := settings.String(SettingPublishTemplate)
	if publishName == "" {
		publishName = item.StringProperty(PropPublishTemplate)
	}
	if (workName != "" && publishName != "") || !force {
		return workName, publishName, nil
	}

	if p.selector == nil || item.Context == nil {
		if workName == "" {
			return "", "", ErrNoWorkTemplate
		}
		return workName, "", ErrNoPublishTemplate
	}

	pair, err := p.selector.SelectTemplates(ctx, *item.Context)
	if err != nil {
		if workName == "" {
			return "", "", fmt.Errorf("%w: %w", ErrNoWorkTemplate, err)
		}
		return workName, "", fmt.Errorf("%w: %w", ErrNoPublishTemplate, err)
	}
	if workName == "" {
		workName = pair.Work
	}
	if publishName == "" {
		publishName = pair.Publish
	}
	if workName == "" {
		return "", "", ErrNoWorkTemplate
	}
	if publishName == "" {
		return workName, "", ErrNoPublishTemplate
	}
	return workName, publishName, nil
}

// probeVersionCollision rejects when the immediate next version already
// exists, pointing the user at the first free version instead. A session
// without a version token skips the probe and disables auto-bump.
func (p *SessionPlugin) probeVersionCollision(item *Item, sessionPath string, logger *slog.Logger) error {
	next, _, err := version.Next(sessionPath)
	if errors.Is(err, version.ErrNoVersionToken) {
		logger.Debug("session file carries no version token, auto-bump disabled")
		return nil
	}
	if err != nil {
		return err
	}

	if p.exists(next) {
		free, _, err := version.FirstAvailable(next, p.exists)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrVersionCollision, next)
		}
		return &CollisionError{
			Occupied: next,
			Remediation: Remediation{
				Label: "save to the next available version",
				Path:  free,
			},
		}
	}

	item.Properties[PropNextVersionPath] = next
	if current, err := version.Number(sessionPath); err == nil {
		item.Properties[PropVersion] = current
	}
	return nil
}

// resolvePublishPath derives the publish destination by re-applying the work
// file's template fields to the publish template. Without templates the
// session path itself is registered.
func (p *SessionPlugin) resolvePublishPath(item *Item, sessionPath, workName, publishName string, force bool) (string, error) {
	if publishName == "" {
		if force {
			return "", ErrNoPublishTemplate
		}
		return sessionPath, nil
	}
	if workName == "" {
		// Publish template configured without a work template to derive
		// fields from.
		return "", fmt.Errorf("%w: publish template %s needs a work template for field resolution", ErrNoWorkTemplate, publishName)
	}

	workTmpl, err := p.templates.Get(workName)
	if err != nil {
		return "", err
	}
	publishTmpl, err := p.templates.Get(publishName)
	if err != nil {
		return "", err
	}

	fields, err := workTmpl.Fields(sessionPath)
	if err != nil {
		if force {
			return "", fmt.Errorf("%w: %w", ErrTemplateMismatch, err)
		}
		return sessionPath, nil
	}
	publishPath, err := publishTmpl.Apply(fields)
	if err != nil {
		return "", err
	}
	publishPath = template.Normalize(publishPath)
	if !filepath.IsAbs(publishPath) && p.projectRoot != "" {
		publishPath = filepath.Join(p.projectRoot, publishPath)
	}
	item.Properties[PropPublishTemplate] = publishName
	return publishPath, nil
}

// Publish saves the session, copies the work file to the publish location
// when one was resolved, and registers the publish with the tracking system.
// The local history record is written last; its failure does not fail the
// publish.
func (p *SessionPlugin) Publish(ctx context.Context, settings Settings, item *Item) error {
	logger := logging.WithContext(ctx, p.logger)

	sessionPath := item.StringProperty(PropPath)
	if err := p.session.Save(ctx, sessionPath); err != nil {
		return services.Wrap(services.ErrExternalService, "host", "save", "save session before publish", err)
	}

	publishPath := item.StringProperty(PropPublishPath)
	if publishPath != "" && publishPath != sessionPath {
		bytes, err := fileutil.CopyFileVerified(sessionPath, publishPath)
		if err != nil {
			return fmt.Errorf("copy to publish location: %w", err)
		}
		logger.Debug("copied work file to publish location",
			logging.String(PropPublishPath, publishPath),
			logging.Int64("bytes", bytes))
	}

	versionNumber, _ := item.Properties[PropVersion].(int)
	request := tracking.PublishRequest{
		Name:        item.Name,
		Path:        sessionPath,
		PublishPath: publishPath,
		Version:     versionNumber,
		Metadata: map[string]any{
			PropWorkTemplate:    item.StringProperty(PropWorkTemplate),
			PropPublishTemplate: item.StringProperty(PropPublishTemplate),
		},
	}
	if item.Context != nil {
		request.EntityType = item.Context.EntityType
		request.EntityID = item.Context.EntityID
		request.TaskID = item.Context.TaskID
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		request.Metadata["run_id"] = runID
	}

	record, err := p.tracker.RegisterPublish(ctx, request)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "tracking", "register_publish", "register publish record", err)
	}
	item.Properties[PropTrackingPublishID] = record.ID
	logger.Info("publish registered",
		logging.Int64("publish_id", record.ID),
		logging.String("path", sessionPath))

	p.recordHistory(ctx, item, record.ID, versionNumber, logger)
	return nil
}

func (p *SessionPlugin) recordHistory(ctx context.Context, item *Item, trackingID int64, versionNumber int, logger *slog.Logger) {
	if p.store == nil {
		return
	}
	rec := history.PublishRecord{
		Name:        item.Name,
		Path:        item.StringProperty(PropPath),
		PublishPath: item.StringProperty(PropPublishPath),
		Version:     versionNumber,
		Template:    item.StringProperty(PropPublishTemplate),
		TrackingID:  trackingID,
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		rec.RunID = runID
	}
	if item.Context != nil {
		rec.EntityType = item.Context.EntityType
		rec.EntityID = item.Context.EntityID
	}
	stored, err := p.store.RecordPublish(ctx, rec)
	if err != nil {
		logger.Warn("failed to record publish history", logging.Error(err))
		return
	}
	item.Properties[PropHistoryPublishID] = stored.ID
}

// Finalize advances the work file to the next version and saves there. A
// failure here is reported but the registered publish stands; there is no
// rollback across the tracking registration and the version bump.
func (p *SessionPlugin) Finalize(ctx context.Context, settings Settings, item *Item) error {
	logger := logging.WithContext(ctx, p.logger)

	next := item.StringProperty(PropNextVersionPath)
	if next == "" {
		logger.Debug("no version token, leaving work file in place")
		return nil
	}
	if err := p.session.Save(ctx, next); err != nil {
		return services.Wrap(services.ErrExternalService, "host", "save", "save next work version", err)
	}
	logger.Info("work file advanced to next version", logging.String("path", next))
	return nil
}
