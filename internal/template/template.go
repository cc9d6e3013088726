package template

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrFieldsIncomplete is returned by Apply when a token in the pattern has no
// corresponding field value.
var ErrFieldsIncomplete = errors.New("missing field for template token")

// KeyType enumerates the supported token value types.
type KeyType string

const (
	KeyString KeyType = "str"
	KeyInt    KeyType = "int"
)

// Key describes one named token usable in template patterns.
type Key struct {
	Type KeyType `yaml:"type"`
	// FormatSpec is the zero-padding width for int keys, e.g. "03".
	FormatSpec string `yaml:"format_spec"`
}

type tokenRef struct {
	key   string
	group string
}

// Template is a named, parametrized path pattern. Matching is anchored at
// the end of the path so work areas can live under any project root.
type Template struct {
	Name    string
	Pattern string

	keys    map[string]Key
	pattern *regexp.Regexp
	tokens  []tokenRef
	// literal/token segments in order, for Apply
	segments []segment
}

type segment struct {
	literal string
	token   string
}

var tokenSyntax = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Compile builds a Template from a token pattern and key definitions.
// Tokens without a key definition default to str.
func Compile(name, pattern string, keys map[string]Key) (*Template, error) {
	pattern = strings.Trim(strings.ReplaceAll(pattern, "\\", "/"), "/")
	if pattern == "" {
		return nil, fmt.Errorf("template %s: empty pattern", name)
	}

	tmpl := &Template{Name: name, Pattern: pattern, keys: keys}

	var sb strings.Builder
	sb.WriteString(`(?:^|/)`)

	last := 0
	groupIndex := 0
	for _, loc := range tokenSyntax.FindAllStringSubmatchIndex(pattern, -1) {
		literal := pattern[last:loc[0]]
		if literal != "" {
			tmpl.segments = append(tmpl.segments, segment{literal: literal})
			sb.WriteString(regexp.QuoteMeta(literal))
		}

		keyName := pattern[loc[2]:loc[3]]
		group := fmt.Sprintf("f%d", groupIndex)
		groupIndex++
		tmpl.tokens = append(tmpl.tokens, tokenRef{key: keyName, group: group})
		tmpl.segments = append(tmpl.segments, segment{token: keyName})

		switch keyFor(keys, keyName).Type {
		case KeyInt:
			fmt.Fprintf(&sb, `(?P<%s>\d+)`, group)
		default:
			fmt.Fprintf(&sb, `(?P<%s>[^/]+?)`, group)
		}
		last = loc[1]
	}
	if tail := pattern[last:]; tail != "" {
		tmpl.segments = append(tmpl.segments, segment{literal: tail})
		sb.WriteString(regexp.QuoteMeta(tail))
	}
	sb.WriteString(`$`)

	compiled, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	tmpl.pattern = compiled
	return tmpl, nil
}

// Normalize returns the path with OS-appropriate separators, no duplicate
// separators, and no trailing separator.
func Normalize(path string) string {
	if path == "" {
		return path
	}
	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(path, "\\", "/")))
}

func matchForm(path string) string {
	return strings.TrimSuffix(filepath.ToSlash(Normalize(path)), "/")
}

// Validate reports whether the path conforms to the template pattern. The
// path is normalized before comparison, so Validate(Normalize(p)) and
// Validate(p) always agree.
func (t *Template) Validate(path string) bool {
	_, err := t.Fields(path)
	return err == nil
}

// Fields resolves concrete token values from a conforming path. Int keys are
// returned as int, str keys as string. A token appearing more than once must
// resolve to the same value everywhere.
func (t *Template) Fields(path string) (map[string]any, error) {
	match := t.pattern.FindStringSubmatch(matchForm(path))
	if match == nil {
		return nil, fmt.Errorf("path %q does not match template %s", path, t.Name)
	}

	fields := make(map[string]any, len(t.tokens))
	raw := make(map[string]string, len(t.tokens))
	for _, tok := range t.tokens {
		value := match[t.pattern.SubexpIndex(tok.group)]
		if prev, seen := raw[tok.key]; seen && prev != value {
			return nil, fmt.Errorf("path %q resolves conflicting values for %s: %q vs %q",
				path, tok.key, prev, value)
		}
		raw[tok.key] = value

		if keyFor(t.keys, tok.key).Type == KeyInt {
			number, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("token %s: %w", tok.key, err)
			}
			fields[tok.key] = number
		} else {
			fields[tok.key] = value
		}
	}
	return fields, nil
}

// Apply builds a concrete relative path from field values, honoring int
// padding from the key's format spec.
func (t *Template) Apply(fields map[string]any) (string, error) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.token == "" {
			sb.WriteString(seg.literal)
			continue
		}
		value, ok := fields[seg.token]
		if !ok {
			return "", fmt.Errorf("%w: %s in template %s", ErrFieldsIncomplete, seg.token, t.Name)
		}
		key := keyFor(t.keys, seg.token)
		switch v := value.(type) {
		case int:
			width := 0
			if key.FormatSpec != "" {
				parsed, err := strconv.Atoi(strings.TrimPrefix(key.FormatSpec, "0"))
				if err != nil {
					return "", fmt.Errorf("template %s: bad format spec %q for %s", t.Name, key.FormatSpec, seg.token)
				}
				width = parsed
			}
			fmt.Fprintf(&sb, "%0*d", width, v)
		case string:
			sb.WriteString(v)
		default:
			return "", fmt.Errorf("template %s: unsupported value %T for %s", t.Name, value, seg.token)
		}
	}
	return filepath.FromSlash(sb.String()), nil
}

func keyFor(keys map[string]Key, name string) Key {
	if keys == nil {
		return Key{Type: KeyString}
	}
	key, ok := keys[name]
	if !ok {
		return Key{Type: KeyString}
	}
	if key.Type == "" {
		key.Type = KeyString
	}
	return key
}
