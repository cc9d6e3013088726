package publish

import (
	"context"
	"path"
)

// SettingType enumerates setting value types a plugin declares.
type SettingType string

const (
	SettingBool   SettingType = "bool"
	SettingString SettingType = "str"
)

// SettingSpec declares one configurable plugin option.
type SettingSpec struct {
	Type        SettingType
	Default     any
	Description string
}

// Settings carries the resolved option values for one task.
type Settings map[string]any

// Bool returns a boolean setting, false when absent or mistyped.
func (s Settings) Bool(name string) bool {
	v, _ := s[name].(bool)
	return v
}

// String returns a string setting, empty when absent or mistyped.
func (s Settings) String(name string) string {
	v, _ := s[name].(string)
	return v
}

// ResolveSettings merges overrides onto the declared defaults. Overrides for
// undeclared options are ignored.
func ResolveSettings(specs map[string]SettingSpec, overrides map[string]any) Settings {
	resolved := make(Settings, len(specs))
	for name, spec := range specs {
		resolved[name] = spec.Default
	}
	for name, value := range overrides {
		if _, ok := specs[name]; ok && value != nil {
			resolved[name] = value
		}
	}
	return resolved
}

// Acceptance is the accept-phase verdict for one item.
type Acceptance struct {
	Accepted bool
	// Checked controls whether the task runs by default; an accepted but
	// unchecked task is collected and skipped.
	Checked bool
	Enabled bool
	Visible bool
}

// Plugin is the publish plugin protocol. Each lifecycle method runs serially
// on a single goroutine; the host scripting surface is not thread safe.
type Plugin interface {
	Name() string
	// ItemFilters returns glob patterns over item type strings.
	ItemFilters() []string
	// SettingSpecs declares the plugin's configurable options.
	SettingSpecs() map[string]SettingSpec

	Accept(ctx context.Context, settings Settings, item *Item) (Acceptance, error)
	Validate(ctx context.Context, settings Settings, item *Item) error
	Publish(ctx context.Context, settings Settings, item *Item) error
	Finalize(ctx context.Context, settings Settings, item *Item) error
}

// MatchesFilters reports whether an item type matches any of the plugin's
// glob filters.
func MatchesFilters(filters []string, itemType string) bool {
	for _, filter := range filters {
		if ok, err := path.Match(filter, itemType); err == nil && ok {
			return true
		}
	}
	return false
}
