package paths

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"mediabutler/internal/fsx"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

const (
	// DefaultTemplate places files flat under an uppercase category folder.
	DefaultTemplate = "{library_root}/{CATEGORY}/{filename}"

	// warnPathLength is the advisory ceiling; hardPathLength the platform one.
	warnPathLength = 240
	hardPathLength = 4096

	defaultConflictAttempts = 10
)

// Report collects validation findings for a built path.
type Report struct {
	Errors          []string
	Warnings        []string
	Recommendations []string
}

// OK reports whether the path passed validation (warnings allowed).
func (r Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) recommendf(format string, args ...any) {
	r.Recommendations = append(r.Recommendations, fmt.Sprintf(format, args...))
}

// Builder resolves target paths for confirmed files.
type Builder struct {
	fs               fsx.FileSystem
	libraryRoot      string
	template         string
	conflictAttempts int
	clock            func() time.Time
}

// BuilderOption configures optional Builder behavior.
type BuilderOption func(*Builder)

// WithTemplate overrides the target path template.
func WithTemplate(template string) BuilderOption {
	return func(b *Builder) {
		if strings.TrimSpace(template) != "" {
			b.template = template
		}
	}
}

// WithConflictAttempts overrides how many numbered variants are tried before
// the timestamp fallback.
func WithConflictAttempts(attempts int) BuilderOption {
	return func(b *Builder) {
		if attempts > 0 {
			b.conflictAttempts = attempts
		}
	}
}

// WithBuilderClock overrides the clock used for timestamp fallback names.
func WithBuilderClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewBuilder creates a Builder rooted at the library directory.
func NewBuilder(fsys fsx.FileSystem, libraryRoot string, opts ...BuilderOption) *Builder {
	b := &Builder{
		fs:               fsys,
		libraryRoot:      filepath.Clean(libraryRoot),
		template:         DefaultTemplate,
		conflictAttempts: defaultConflictAttempts,
		clock:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var templateVarPattern = regexp.MustCompile(`\{[a-zA-Z_]+\}`)

// Build resolves the target path for a file confirmed into a category.
// The returned path is absolute and sanitized; the report carries validation
// findings. A non-OK report comes back with a path-kind error.
func (b *Builder) Build(file *store.TrackedFile, category string) (string, Report, error) {
	var report Report

	if file == nil {
		report.errorf("no file to build a path for")
		return "", report, recovery.Wrap(recovery.ErrValidation, "paths", "build", "nil tracked file", nil)
	}
	if strings.TrimSpace(category) == "" {
		report.errorf("category is empty")
		return "", report, recovery.Wrap(recovery.ErrValidation, "paths", "build", "empty category", nil)
	}

	fileName := file.FileName
	if fileName == "" {
		fileName = filepath.Base(file.OriginalPath)
	}
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)

	vars := map[string]string{
		"{library_root}": b.libraryRoot,
		"{CATEGORY}":     SanitizeComponent(strings.ToUpper(category)),
		"{filename}":     SanitizeComponent(fileName),
		"{hash}":         file.Hash,
		"{extension}":    ext,
		"{basename}":     SanitizeComponent(baseName),
	}

	target := b.template
	for token, value := range vars {
		target = strings.ReplaceAll(target, token, value)
	}
	if leftover := templateVarPattern.FindString(target); leftover != "" {
		// Unknown variables stay literally; flag them so a template typo is
		// visible instead of silently producing a {foo} directory.
		report.warnf("template variable %s is not recognized", leftover)
	}

	target = filepath.Clean(target)
	if !filepath.IsAbs(target) {
		absolute, err := filepath.Abs(target)
		if err != nil {
			report.errorf("resolve absolute path: %v", err)
			return "", report, recovery.Wrap(recovery.ErrPath, "paths", "build", "cannot resolve absolute path", err)
		}
		target = absolute
	}

	b.validate(target, &report)
	if !report.OK() {
		return target, report, recovery.Wrap(recovery.ErrPath, "paths", "build", strings.Join(report.Errors, "; "), nil)
	}
	return target, report, nil
}

// validate applies the path-level checks shared by Build and ValidateTarget.
func (b *Builder) validate(target string, report *Report) {
	if len(target) > hardPathLength {
		report.errorf("path length %d exceeds platform maximum %d", len(target), hardPathLength)
	} else if len(target) > warnPathLength {
		report.warnf("path length %d exceeds recommended maximum %d", len(target), warnPathLength)
		report.recommendf("shorten the category or filename to keep paths portable")
	}

	relative, err := filepath.Rel(b.libraryRoot, target)
	if err != nil || strings.HasPrefix(relative, "..") {
		report.errorf("target escapes the library root %s", b.libraryRoot)
	} else {
		for _, component := range strings.Split(relative, string(filepath.Separator)) {
			if HasInvalidChars(component) {
				report.errorf("component %q carries invalid characters", component)
			}
		}
	}

	parent := filepath.Dir(target)
	if info, statErr := b.fs.Stat(parent); statErr == nil {
		if !info.IsDir() {
			report.errorf("target parent %s exists and is not a directory", parent)
		}
	}
	// A missing parent is fine: the mover creates it with 0755.
}

// ValidateTarget runs the validation checks against an externally supplied
// target path without building one.
func (b *Builder) ValidateTarget(target string) Report {
	var report Report
	b.validate(filepath.Clean(target), &report)
	return report
}

// ResolveConflict returns a target that does not collide with an existing
// file. An unoccupied target comes back unchanged; otherwise numbered
// variants "name (n)" are tried, then a timestamp suffix.
func (b *Builder) ResolveConflict(target string) (string, error) {
	if !b.exists(target) {
		return target, nil
	}

	dir := filepath.Dir(target)
	ext := filepath.Ext(target)
	base := strings.TrimSuffix(filepath.Base(target), ext)

	for n := 1; n <= b.conflictAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
		if !b.exists(candidate) {
			return candidate, nil
		}
	}

	stamped := filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, b.clock().Format("20060102_150405"), ext))
	if b.exists(stamped) {
		return "", recovery.Wrap(recovery.ErrPath, "paths", "resolve conflict",
			fmt.Sprintf("cannot find a free name for %s", target), nil)
	}
	return stamped, nil
}

func (b *Builder) exists(path string) bool {
	_, err := b.fs.Stat(path)
	return err == nil
}
