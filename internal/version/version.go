// Package version recognizes and advances version tokens embedded in work
// file names. A token is the letter "v" followed by digits, preceded by ".",
// "_" or "-" (for example shot010.v001.fbx or rig_v12.fbx). Any digit
// padding width is supported and preserved.
package version

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

var (
	// ErrNoVersionToken indicates the file name carries no recognizable
	// version token. Callers treat this as non-fatal: the file is simply
	// unversioned and auto-bump behavior is disabled.
	ErrNoVersionToken = errors.New("no version token in file name")

	// ErrSearchExhausted indicates the free-version probe gave up after the
	// safety bound.
	ErrSearchExhausted = errors.New("version search exhausted")
)

// MaxProbes bounds the FirstAvailable search.
const MaxProbes = 10000

var tokenPattern = regexp.MustCompile(`[._-]v(\d+)`)

type token struct {
	start  int // index of the first digit within the base name
	end    int // index one past the last digit
	number int
	width  int
}

// parseToken locates the last version token in the base file name.
func parseToken(base string) (token, error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(base, -1)
	if len(matches) == 0 {
		return token{}, ErrNoVersionToken
	}
	last := matches[len(matches)-1]
	digits := base[last[2]:last[3]]
	number, err := strconv.Atoi(digits)
	if err != nil {
		return token{}, fmt.Errorf("parse version digits %q: %w", digits, err)
	}
	return token{start: last[2], end: last[3], number: number, width: len(digits)}, nil
}

// Number extracts the version number embedded in the path's file name.
func Number(path string) (int, error) {
	tok, err := parseToken(filepath.Base(path))
	if err != nil {
		return 0, err
	}
	return tok.number, nil
}

// Next returns the path with the version token incremented by one, along with
// the new version number. Padding width and separator style are preserved;
// when the incremented numeral no longer fits the width, the token widens
// rather than wrapping.
func Next(path string) (string, int, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tok, err := parseToken(base)
	if err != nil {
		return "", 0, err
	}

	next := tok.number + 1
	bumped := base[:tok.start] + fmt.Sprintf("%0*d", tok.width, next) + base[tok.end:]
	if dir == "." && !startsWithDot(path) {
		return bumped, next, nil
	}
	return filepath.Join(dir, bumped), next, nil
}

// FirstAvailable probes forward from path until it finds a version whose path
// the exists callback reports as unoccupied. The search is bounded by
// MaxProbes, beyond which ErrSearchExhausted is returned.
func FirstAvailable(path string, exists func(string) bool) (string, int, error) {
	candidate, number, err := Next(path)
	if err != nil {
		return "", 0, err
	}
	for probes := 1; exists(candidate); probes++ {
		if probes >= MaxProbes {
			return "", 0, fmt.Errorf("%w after %d probes from %s", ErrSearchExhausted, probes, path)
		}
		candidate, number, err = Next(candidate)
		if err != nil {
			return "", 0, err
		}
	}
	return candidate, number, nil
}

func startsWithDot(path string) bool {
	return len(path) >= 2 && path[0] == '.' && (path[1] == '/' || path[1] == '\\')
}
