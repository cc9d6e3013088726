package publish

import (
	"context"
	"path/filepath"
	"testing"

	"slate/internal/host"
	"slate/internal/tracking"
)

func TestCollectSessionTree(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	session := host.NewFileSession(work,
		host.WithCameras([]host.Camera{
			{Name: host.PerspectiveCameraName, SystemCamera: true},
			{Name: "CameraA"},
			{Name: "CameraB"},
		}),
		host.WithTakes([]host.Take{{Name: "shot_010"}, {Name: "shot_020"}}),
	)

	collector := NewCollector(session, "mobu_routine_work", nil)
	pubCtx := tracking.Context{EntityType: "Routine", EntityID: 10, TaskID: 5}
	root, err := collector.Collect(context.Background(), pubCtx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if root.Type != ItemTypeSession || root.Name != "shot010.v001.fbx" {
		t.Fatalf("root = %s %q", root.Type, root.Name)
	}
	if root.StringProperty(PropPath) != work {
		t.Fatalf("root path = %q", root.StringProperty(PropPath))
	}
	if root.StringProperty(PropWorkTemplate) != "mobu_routine_work" {
		t.Fatalf("work template = %q", root.StringProperty(PropWorkTemplate))
	}

	children := root.Children()
	if len(children) != 2 {
		t.Fatalf("expected 2 take items, got %d", len(children))
	}
	take := children[0]
	if take.Type != ItemTypeTake || take.StringProperty(PropTake) != "shot_010" {
		t.Fatalf("take item = %s %q", take.Type, take.StringProperty(PropTake))
	}
	if take.Context == nil || take.Context.TaskID != 5 {
		t.Fatal("take item must inherit the session context")
	}

	selection := take.CameraSelection()
	if len(selection) != 2 || !selection["CameraA"] || !selection["CameraB"] {
		t.Fatalf("selection = %v", selection)
	}
	if _, ok := selection[host.PerspectiveCameraName]; ok {
		t.Fatal("system camera must not be a candidate when user cameras exist")
	}
}

func TestCollectFallsBackToPerspectiveCamera(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "shot010.v001.fbx")
	writeWorkFile(t, work)

	session := host.NewFileSession(work,
		host.WithCameras([]host.Camera{{Name: host.PerspectiveCameraName, SystemCamera: true}}),
		host.WithTakes([]host.Take{{Name: "shot_010"}}),
	)

	root, err := NewCollector(session, "", nil).Collect(context.Background(), tracking.Context{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	selection := root.Children()[0].CameraSelection()
	if len(selection) != 1 || !selection[host.PerspectiveCameraName] {
		t.Fatalf("expected perspective fallback, got %v", selection)
	}
}

func TestCollectUnsavedSession(t *testing.T) {
	root, err := NewCollector(host.NewFileSession(""), "", nil).Collect(context.Background(), tracking.Context{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if root.Name != UnsavedSessionName {
		t.Fatalf("root name = %q", root.Name)
	}
	if root.StringProperty(PropPath) != "" {
		t.Fatal("unsaved session must carry an empty path")
	}
}
