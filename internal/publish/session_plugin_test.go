package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/host"
	"slate/internal/template"
	"slate/internal/tracking"
)

type fakeTracker struct {
	requests []tracking.PublishRequest
	nextID   int64
}

func (f *fakeTracker) FindEntity(ctx context.Context, entityType string, id int64, fields []string) (*tracking.Entity, error) {
	return &tracking.Entity{Type: entityType, ID: id, Fields: map[string]any{}}, nil
}

func (f *fakeTracker) RegisterPublish(ctx context.Context, req tracking.PublishRequest) (*tracking.PublishRecord, error) {
	f.requests = append(f.requests, req)
	f.nextID++
	return &tracking.PublishRecord{ID: f.nextID}, nil
}

type fakeSelector struct {
	pair tracking.TemplatePair
	err  error
}

func (f *fakeSelector) SelectTemplates(ctx context.Context, pubCtx tracking.Context) (tracking.TemplatePair, error) {
	if f.err != nil {
		return tracking.TemplatePair{}, f.err
	}
	return f.pair, nil
}

func emptyRegistry(t *testing.T) *template.Registry {
	t.Helper()
	registry, err := template.NewRegistry(nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func writeWorkFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("scene"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newSessionItem(path string) *Item {
	name := UnsavedSessionName
	if path != "" {
		name = filepath.Base(path)
	}
	item := NewItem(ItemTypeSession, name)
	item.Properties[PropPath] = path
	return item
}

func TestValidateRejectsUnsavedSession(t *testing.T) {
	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(""),
		Templates: emptyRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), nil)

	err = plugin.Validate(context.Background(), settings, newSessionItem(""))
	if !errors.Is(err, ErrUnsavedSession) {
		t.Fatalf("expected ErrUnsavedSession, got %v", err)
	}
}

func TestPublishCycleWithoutTemplates(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	session := host.NewFileSession(work)
	tracker := &fakeTracker{nextID: 99}
	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   session,
		Templates: emptyRegistry(t),
		Tracker:   tracker,
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), nil)
	item := newSessionItem(work)
	ctx := context.Background()

	if err := plugin.Validate(ctx, settings, item); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	next := item.StringProperty(PropNextVersionPath)
	if filepath.Base(next) != "shot010.v002.fbx" {
		t.Fatalf("next version path = %q", next)
	}

	if err := plugin.Publish(ctx, settings, item); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(tracker.requests) != 1 {
		t.Fatalf("expected one publish registration, got %d", len(tracker.requests))
	}
	req := tracker.requests[0]
	if req.Path != work || req.Version != 1 {
		t.Fatalf("registered path=%q version=%d", req.Path, req.Version)
	}
	if item.Int64Property(PropTrackingPublishID) != 100 {
		t.Fatalf("publish id = %d", item.Int64Property(PropTrackingPublishID))
	}

	if err := plugin.Finalize(ctx, settings, item); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	current, _ := session.Path(ctx)
	if current != next {
		t.Fatalf("session path after finalize = %q, want %q", current, next)
	}
	if _, err := os.Stat(next); err != nil {
		t.Fatalf("next work version missing: %v", err)
	}
}

func TestValidateVersionCollision(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)
	writeWorkFile(t, filepath.Join(dir, "shot010.v002.fbx"))

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: emptyRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), nil)

	err = plugin.Validate(context.Background(), settings, newSessionItem(work))
	if !errors.Is(err, ErrVersionCollision) {
		t.Fatalf("expected ErrVersionCollision, got %v", err)
	}
	remediation, ok := RemediationFor(err)
	if !ok {
		t.Fatal("collision error must carry a remediation")
	}
	if filepath.Base(remediation.Path) != "shot010.v003.fbx" {
		t.Fatalf("remediation path = %q, want first free version", remediation.Path)
	}
}

func TestValidateCollisionSkipsOccupiedRange(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)
	writeWorkFile(t, filepath.Join(dir, "shot010.v002.fbx"))
	writeWorkFile(t, filepath.Join(dir, "shot010.v003.fbx"))

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: emptyRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), nil)

	err = plugin.Validate(context.Background(), settings, newSessionItem(work))
	remediation, ok := RemediationFor(err)
	if !ok {
		t.Fatalf("expected collision with remediation, got %v", err)
	}
	if filepath.Base(remediation.Path) != "shot010.v004.fbx" {
		t.Fatalf("remediation path = %q", remediation.Path)
	}
}

func TestValidateForceTemplateRequiresTask(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: emptyRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingForceTemplate: true,
	})

	item := newSessionItem(work)
	item.Context = &tracking.Context{EntityType: "Routine", EntityID: 10}
	err = plugin.Validate(context.Background(), settings, item)
	if !errors.Is(err, ErrMissingTask) {
		t.Fatalf("expected ErrMissingTask, got %v", err)
	}
}

func routineRegistry(t *testing.T) *template.Registry {
	t.Helper()
	registry, err := template.NewRegistry(map[string]string{
		"mobu_routine_work":    "work/{Routine}/mobu/{name}_v{version}.fbx",
		"mobu_routine_publish": "publish/{Routine}/mobu/{name}_v{version}.fbx",
	}, map[string]template.Key{
		"version": {Type: template.KeyInt, FormatSpec: "03"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func TestValidateForceTemplateWithSelector(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "work", "rt010", "mobu", "shot010_v001.fbx")
	writeWorkFile(t, work)

	tracker := &fakeTracker{}
	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: routineRegistry(t),
		Selector: &fakeSelector{pair: tracking.TemplatePair{
			Work:    "mobu_routine_work",
			Publish: "mobu_routine_publish",
		}},
		Tracker:     tracker,
		ProjectRoot: dir,
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingForceTemplate: true,
	})

	item := newSessionItem(work)
	item.Context = &tracking.Context{EntityType: "Routine", EntityID: 10, TaskID: 5}
	ctx := context.Background()

	if err := plugin.Validate(ctx, settings, item); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	wantPublish := filepath.Join(dir, "publish", "rt010", "mobu", "shot010_v001.fbx")
	if got := item.StringProperty(PropPublishPath); got != wantPublish {
		t.Fatalf("publish path = %q, want %q", got, wantPublish)
	}

	if err := plugin.Publish(ctx, settings, item); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(wantPublish); err != nil {
		t.Fatalf("publish copy missing: %v", err)
	}
	req := tracker.requests[0]
	if req.EntityType != "Routine" || req.TaskID != 5 || req.PublishPath != wantPublish {
		t.Fatalf("unexpected registration %+v", req)
	}
}

func TestValidateForceTemplateMismatch(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "elsewhere", "shot010_v001.fbx")
	writeWorkFile(t, work)

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: routineRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingForceTemplate:   true,
		SettingWorkTemplate:    "mobu_routine_work",
		SettingPublishTemplate: "mobu_routine_publish",
	})

	item := newSessionItem(work)
	item.Context = &tracking.Context{EntityType: "Routine", EntityID: 10, TaskID: 5}
	err = plugin.Validate(context.Background(), settings, item)
	if !errors.Is(err, ErrTemplateMismatch) {
		t.Fatalf("expected ErrTemplateMismatch, got %v", err)
	}
}

func TestValidateLenientMismatchWarns(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "elsewhere", "shot010_v001.fbx")
	writeWorkFile(t, work)

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: routineRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingWorkTemplate: "mobu_routine_work",
	})

	item := newSessionItem(work)
	if err := plugin.Validate(context.Background(), settings, item); err != nil {
		t.Fatalf("lenient mismatch should pass validation, got %v", err)
	}
	if got := item.StringProperty(PropPublishPath); got != work {
		t.Fatalf("publish path = %q, want session path", got)
	}
}

func TestValidateUnknownTemplateName(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: emptyRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingWorkTemplate: "no_such_template",
	})

	err = plugin.Validate(context.Background(), settings, newSessionItem(work))
	if !errors.Is(err, template.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestValidateSelectorFailureUnderForce(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: emptyRegistry(t),
		Selector:  &fakeSelector{err: fmt.Errorf("wrapped: %w", tracking.ErrUnsupportedContextType)},
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingForceTemplate: true,
	})

	item := newSessionItem(work)
	item.Context = &tracking.Context{EntityType: "Level", EntityID: 3, TaskID: 7}
	err = plugin.Validate(context.Background(), settings, item)
	if !errors.Is(err, ErrNoWorkTemplate) {
		t.Fatalf("expected ErrNoWorkTemplate, got %v", err)
	}
	if !errors.Is(err, tracking.ErrUnsupportedContextType) {
		t.Fatalf("selector cause must be preserved, got %v", err)
	}
}

func TestValidateCollisionReportedBeforePublishTemplate(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "work", "rt010", "mobu", "shot010_v001.fbx")
	writeWorkFile(t, work)
	writeWorkFile(t, filepath.Join(dir, "work", "rt010", "mobu", "shot010_v002.fbx"))

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: routineRegistry(t),
		Selector:  &fakeSelector{err: tracking.ErrUnsupportedContextType},
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), map[string]any{
		SettingForceTemplate: true,
		SettingWorkTemplate:  "mobu_routine_work",
	})

	item := newSessionItem(work)
	item.Context = &tracking.Context{EntityType: "Routine", EntityID: 10, TaskID: 5}
	err = plugin.Validate(context.Background(), settings, item)
	if !errors.Is(err, ErrVersionCollision) {
		t.Fatalf("collision must surface before the publish template error, got %v", err)
	}
	remediation, ok := RemediationFor(err)
	if !ok {
		t.Fatal("collision error must carry a remediation")
	}
	if filepath.Base(remediation.Path) != "shot010_v003.fbx" {
		t.Fatalf("remediation path = %q", remediation.Path)
	}
}

func TestValidateNormalizesSessionPath(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	plugin, err := NewSessionPlugin(SessionPluginDeps{
		Session:   host.NewFileSession(work),
		Templates: emptyRegistry(t),
		Tracker:   &fakeTracker{},
	})
	if err != nil {
		t.Fatalf("NewSessionPlugin: %v", err)
	}
	settings := ResolveSettings(plugin.SettingSpecs(), nil)

	messy := strings.Replace(work, string(filepath.Separator), strings.Repeat(string(filepath.Separator), 2), 1)
	item := newSessionItem(messy)
	if err := plugin.Validate(context.Background(), settings, item); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := item.StringProperty(PropPath); got != work {
		t.Fatalf("normalized path = %q, want %q", got, work)
	}
}
