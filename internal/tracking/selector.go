package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"slate/internal/logging"
)

// ErrUnsupportedContextType indicates the context entity type has no entry in
// the template table. Callers fall back to explicitly configured templates.
var ErrUnsupportedContextType = errors.New("unsupported context entity type")

// Context references the production-tracking entity a publish is associated
// with. TaskID is zero when no task is attached.
type Context struct {
	EntityType string
	EntityID   int64
	TaskID     int64
}

// HasTask reports whether a task is attached to the context.
func (c Context) HasTask() bool {
	return c.TaskID != 0
}

// EntityLabel returns a human-readable label for the context entity.
func (c Context) EntityLabel() string {
	if c.EntityType == "" {
		return "unknown entity"
	}
	label := cases.Title(language.Und).String(strings.ToLower(c.EntityType))
	return fmt.Sprintf("%s %d", label, c.EntityID)
}

// TemplatePair names the work and publish templates that apply to a context.
type TemplatePair struct {
	Work    string
	Publish string
}

// contextTemplates maps lower-cased entity types to their template pairs.
// Entity types absent from this table are explicitly unsupported.
var contextTemplates = map[string]TemplatePair{
	"routine": {
		Work:    "mobu_routine_work",
		Publish: "mobu_routine_publish",
	},
	"routine_subsession": {
		Work:    "mobu_routine_subsession_work",
		Publish: "mobu_routine_subsession_publish",
	},
	"mocaptake": {
		Work:    "mobu_mocaptake_work",
		Publish: "mobu_mocaptake_publish",
	},
	"mocaptake_subsession": {
		Work:    "mobu_mocaptake_subsession_work",
		Publish: "mobu_mocaptake_subsession_publish",
	},
	"asset": {
		Work:    "mobu_asset_work",
		Publish: "mobu_asset_publish",
	},
}

// subsessionFields are the supplementary fields fetched for entity types that
// can carry a subsession variant.
var subsessionFields = []string{"sg_session", "sg_subsession"}

// Selector chooses template names from a publish context. It is consulted
// only when explicit template settings are absent and the force-template
// policy is enabled; explicit settings always take precedence.
type Selector struct {
	finder Finder
	logger *slog.Logger
}

// NewSelector builds a Selector backed by the given entity finder.
func NewSelector(finder Finder, logger *slog.Logger) *Selector {
	return &Selector{
		finder: finder,
		logger: logging.NewComponentLogger(logger, "template-selector"),
	}
}

// SelectTemplates resolves the template pair for a context, switching to the
// "_subsession" variant when the entity's supplementary flag is set.
func (s *Selector) SelectTemplates(ctx context.Context, pubCtx Context) (TemplatePair, error) {
	key := strings.ToLower(strings.TrimSpace(pubCtx.EntityType))
	pair, ok := contextTemplates[key]
	if !ok {
		return TemplatePair{}, fmt.Errorf("%w: %s", ErrUnsupportedContextType, pubCtx.EntityType)
	}

	if key != "routine" && key != "mocaptake" {
		return pair, nil
	}

	entity, err := s.finder.FindEntity(ctx, pubCtx.EntityType, pubCtx.EntityID, subsessionFields)
	if err != nil {
		return TemplatePair{}, err
	}

	if truthy(entity.Fields["sg_subsession"]) {
		variant := key + "_subsession"
		pair = contextTemplates[variant]
		s.logger.Debug("selected subsession template variant",
			logging.String("entity", pubCtx.EntityLabel()),
			logging.String("variant", variant))
	}
	return pair, nil
}

// SupportedEntityTypes returns the lower-cased entity types the selector
// recognizes.
func SupportedEntityTypes() []string {
	types := make([]string, 0, len(contextTemplates))
	for key := range contextTemplates {
		types = append(types, key)
	}
	return types
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && !strings.EqualFold(v, "false")
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}
