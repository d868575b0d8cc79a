package paths_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"mediabutler/internal/fsx"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

func trackedFile(name string) *store.TrackedFile {
	return &store.TrackedFile{
		Hash:         strings.Repeat("a", 64),
		OriginalPath: "/downloads/" + name,
		FileName:     name,
		FileSize:     500 * 1024 * 1024,
		Status:       store.StatusClassified,
	}
}

func TestSanitizeComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DOCTOR: WHO?", "DOCTOR_ WHO_"},
		{"normal name", "normal name"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"trailing dots...", "trailing dots"},
		{"  spaced  ", "spaced"},
		{"", "unknown"},
		{"???", "_"},
		{"CON", "_CON"},
		{"con.mkv", "_con.mkv"},
		{"lpt3", "_lpt3"},
		{"consul", "consul"},
		{"a__b___c", "a_b_c"},
	}
	for _, tc := range tests {
		if got := paths.SanitizeComponent(tc.in); got != tc.want {
			t.Errorf("SanitizeComponent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeComponentTotality(t *testing.T) {
	inputs := []string{
		"plain", "..", ".", "a/b", "\x00\x01\x02", "tab\tname", "mixed: <all*> of\\it?",
	}
	for _, in := range inputs {
		got := paths.SanitizeComponent(in)
		if got == "" {
			t.Errorf("SanitizeComponent(%q) produced empty component", in)
		}
		if paths.HasInvalidChars(got) {
			t.Errorf("SanitizeComponent(%q) = %q still carries invalid characters", in, got)
		}
	}
}

func TestBuildDefaultTemplate(t *testing.T) {
	fs := fsx.NewMemFS()
	builder := paths.NewBuilder(fs, "/library")

	file := trackedFile("The.Walking.Dead.S11E24.FINAL.ITA.ENG.1080p.mkv")
	target, report, err := builder.Build(file, "THE WALKING DEAD")
	if err != nil {
		t.Fatalf("Build: %v (report %+v)", err, report)
	}
	want := "/library/THE WALKING DEAD/The.Walking.Dead.S11E24.FINAL.ITA.ENG.1080p.mkv"
	if target != want {
		t.Fatalf("target = %q, want %q", target, want)
	}
	if !report.OK() {
		t.Fatalf("unexpected report errors: %v", report.Errors)
	}
}

func TestBuildSanitizesCategory(t *testing.T) {
	fs := fsx.NewMemFS()
	builder := paths.NewBuilder(fs, "/library")

	target, _, err := builder.Build(trackedFile("ep.mkv"), "Doctor: Who?")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if target != "/library/DOCTOR_ WHO_/ep.mkv" {
		t.Fatalf("target = %q", target)
	}
}

func TestBuildCustomTemplate(t *testing.T) {
	fs := fsx.NewMemFS()
	builder := paths.NewBuilder(fs, "/library", paths.WithTemplate("{library_root}/{CATEGORY}/{basename}-{hash}{extension}"))

	file := trackedFile("ep.mkv")
	target, _, err := builder.Build(file, "friends")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "/library/FRIENDS/ep-" + file.Hash + ".mkv"
	if target != want {
		t.Fatalf("target = %q, want %q", target, want)
	}
}

func TestBuildUnknownVariableStaysLiteral(t *testing.T) {
	fs := fsx.NewMemFS()
	builder := paths.NewBuilder(fs, "/library", paths.WithTemplate("{library_root}/{CATEGORY}/{mystery}/{filename}"))

	target, report, err := builder.Build(trackedFile("ep.mkv"), "show")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(target, "{mystery}") {
		t.Fatalf("unknown variable substituted away: %q", target)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("expected a warning for the unknown template variable")
	}
}

func TestBuildRejectsEmptyCategory(t *testing.T) {
	builder := paths.NewBuilder(fsx.NewMemFS(), "/library")
	_, _, err := builder.Build(trackedFile("ep.mkv"), "   ")
	if !errors.Is(err, recovery.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildWarnsOnLongPath(t *testing.T) {
	builder := paths.NewBuilder(fsx.NewMemFS(), "/library")
	file := trackedFile(strings.Repeat("x", 250) + ".mkv")

	_, report, err := builder.Build(file, "show")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("expected long-path warning")
	}
}

func TestResolveConflictNumbersThenTimestamp(t *testing.T) {
	fs := fsx.NewMemFS()
	stamp := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	builder := paths.NewBuilder(fs, "/library",
		paths.WithConflictAttempts(2),
		paths.WithBuilderClock(func() time.Time { return stamp }),
	)

	target := "/library/FRIENDS/ep.mkv"
	resolved, err := builder.ResolveConflict(target)
	if err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}
	if resolved != target {
		t.Fatalf("unoccupied target changed: %q", resolved)
	}

	fs.WriteFile(target, []byte("occupied"))
	resolved, err = builder.ResolveConflict(target)
	if err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}
	if resolved != "/library/FRIENDS/ep (1).mkv" {
		t.Fatalf("resolved = %q", resolved)
	}

	fs.WriteFile("/library/FRIENDS/ep (1).mkv", []byte("occupied"))
	resolved, err = builder.ResolveConflict(target)
	if err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}
	if resolved != "/library/FRIENDS/ep (2).mkv" {
		t.Fatalf("resolved = %q", resolved)
	}

	fs.WriteFile("/library/FRIENDS/ep (2).mkv", []byte("occupied"))
	resolved, err = builder.ResolveConflict(target)
	if err != nil {
		t.Fatalf("ResolveConflict after exhaustion: %v", err)
	}
	if resolved != "/library/FRIENDS/ep_20260314_150926.mkv" {
		t.Fatalf("timestamp fallback = %q", resolved)
	}
}

func TestValidateTargetEscapingRoot(t *testing.T) {
	builder := paths.NewBuilder(fsx.NewMemFS(), "/library")
	report := builder.ValidateTarget("/elsewhere/file.mkv")
	if report.OK() {
		t.Fatal("expected error for target outside library root")
	}
}
