package version_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"slate/internal/version"
)

func TestNextPreservesPaddingAndSeparator(t *testing.T) {
	cases := []struct {
		path       string
		want       string
		wantNumber int
	}{
		{"shot010.v001.fbx", "shot010.v002.fbx", 2},
		{"rig_v12.fbx", "rig_v13.fbx", 13},
		{"take-v9.fbx", "take-v10.fbx", 10},
		{"/work/seq/shot010.v099.fbx", "/work/seq/shot010.v100.fbx", 100},
		{"anim.v1.take_v003.fbx", "anim.v1.take_v004.fbx", 4},
		{"pose_v999.fbx", "pose_v1000.fbx", 1000},
	}
	for _, tc := range cases {
		got, number, err := version.Next(tc.path)
		if err != nil {
			t.Fatalf("Next(%q): %v", tc.path, err)
		}
		if got != tc.want || number != tc.wantNumber {
			t.Errorf("Next(%q) = %q, %d; want %q, %d", tc.path, got, number, tc.want, tc.wantNumber)
		}
	}
}

func TestNextRoundTrip(t *testing.T) {
	for _, path := range []string{"shot010.v001.fbx", "clip_v07.fbx", "walk-v123.fbx"} {
		before, err := version.Number(path)
		if err != nil {
			t.Fatalf("Number(%q): %v", path, err)
		}
		bumped, after, err := version.Next(path)
		if err != nil {
			t.Fatalf("Next(%q): %v", path, err)
		}
		if after-1 != before {
			t.Errorf("round trip %q -> %q: got %d, want %d", path, bumped, after-1, before)
		}
	}
}

func TestNextWithoutTokenSignals(t *testing.T) {
	for _, path := range []string{"scene.fbx", "shot010.fbx", "venice2.fbx", "v001.fbx"} {
		if _, _, err := version.Next(path); !errors.Is(err, version.ErrNoVersionToken) {
			t.Errorf("Next(%q): expected ErrNoVersionToken, got %v", path, err)
		}
	}
}

func TestFirstAvailableSkipsOccupiedVersions(t *testing.T) {
	occupied := map[string]bool{
		"shot010.v002.fbx": true,
		"shot010.v003.fbx": true,
	}
	got, number, err := version.FirstAvailable("shot010.v001.fbx", func(p string) bool {
		return occupied[p]
	})
	if err != nil {
		t.Fatalf("FirstAvailable: %v", err)
	}
	if got != "shot010.v004.fbx" || number != 4 {
		t.Fatalf("expected shot010.v004.fbx/4, got %s/%d", got, number)
	}
}

func TestFirstAvailableImmediateFreeVersion(t *testing.T) {
	got, number, err := version.FirstAvailable("shot010.v001.fbx", func(string) bool { return false })
	if err != nil {
		t.Fatalf("FirstAvailable: %v", err)
	}
	if got != "shot010.v002.fbx" || number != 2 {
		t.Fatalf("expected shot010.v002.fbx/2, got %s/%d", got, number)
	}
}

func TestFirstAvailableExhaustsSearch(t *testing.T) {
	_, _, err := version.FirstAvailable("shot010.v001.fbx", func(string) bool { return true })
	if !errors.Is(err, version.ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}
	if !strings.Contains(fmt.Sprint(err), "shot010.v001.fbx") {
		t.Fatalf("expected origin path in error, got %v", err)
	}
}
