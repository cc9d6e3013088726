package publish

import (
	"slate/internal/tracking"
)

// Item type strings plugins filter on.
const (
	ItemTypeSession = "mocap.session"
	ItemTypeTake    = "mocap.take"
)

// Property keys shared between the collector and the plugins.
const (
	// PropPath is the session file path (empty for an unsaved session).
	PropPath = "path"
	// PropWorkTemplate is the work template name attached at collect time.
	PropWorkTemplate = "work_template"
	// PropPublishTemplate is the resolved publish template name.
	PropPublishTemplate = "publish_template"
	// PropPublishPath is the resolved publish destination path.
	PropPublishPath = "publish_path"
	// PropNextVersionPath is the path the work file advances to on finalize.
	PropNextVersionPath = "next_version_path"
	// PropVersion is the version number embedded in the session path.
	PropVersion = "version"
	// PropTake is the take name on take items.
	PropTake = "take"
	// PropCameras is the camera selection on take items, name to checked.
	PropCameras = "cameras"
	// PropTrackingPublishID is the tracking system's publish record id,
	// stored on the session item after a successful publish.
	PropTrackingPublishID = "tracking_publish_id"
	// PropHistoryPublishID is the local history record id.
	PropHistoryPublishID = "history_publish_id"
)

// Item is one publishable unit collected from the session: the session file
// itself, or a take within it. Items form a small tree with the session at
// the root.
type Item struct {
	Type string
	Name string

	// Context references the tracking entity the publish belongs to. Child
	// items inherit it from their parent at collect time.
	Context *tracking.Context

	Properties map[string]any

	parent   *Item
	children []*Item
}

// NewItem creates an item with an empty property bag.
func NewItem(itemType, name string) *Item {
	return &Item{
		Type:       itemType,
		Name:       name,
		Properties: make(map[string]any),
	}
}

// AddChild attaches a child item, which inherits the parent context unless it
// already carries its own.
func (i *Item) AddChild(child *Item) {
	child.parent = i
	if child.Context == nil {
		child.Context = i.Context
	}
	i.children = append(i.children, child)
}

// Parent returns the parent item, or nil for the root.
func (i *Item) Parent() *Item {
	return i.parent
}

// Children returns the direct child items.
func (i *Item) Children() []*Item {
	return i.children
}

// Walk visits the item and its descendants depth first.
func (i *Item) Walk(visit func(*Item)) {
	visit(i)
	for _, child := range i.children {
		child.Walk(visit)
	}
}

// StringProperty returns a string property, or empty when absent or of
// another type.
func (i *Item) StringProperty(key string) string {
	if v, ok := i.Properties[key].(string); ok {
		return v
	}
	return ""
}

// Int64Property returns an integer property, accepting int and int64 values.
func (i *Item) Int64Property(key string) int64 {
	switch v := i.Properties[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// CameraSelection returns the camera selection map on a take item. The map
// is nil when the property is absent.
func (i *Item) CameraSelection() map[string]bool {
	if v, ok := i.Properties[PropCameras].(map[string]bool); ok {
		return v
	}
	return nil
}
