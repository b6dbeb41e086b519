package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

// Shooter captures the current page.
type Shooter interface {
	Screenshot() ([]byte, error)
}

// ScreenshotStore implements core.ScreenshotCapturer by writing PNGs to
// <outputDir>/screenshots/<test>-<stage>[-failure].png. Returned paths are
// relative to outputDir so the report directory can be moved.
type ScreenshotStore struct {
	outputDir string
	shooter   Shooter

	mu   sync.Mutex
	used map[string]int
}

var _ core.ScreenshotCapturer = (*ScreenshotStore)(nil)

// NewScreenshotStore creates a store writing under outputDir.
func NewScreenshotStore(outputDir string, shooter Shooter) *ScreenshotStore {
	return &ScreenshotStore{
		outputDir: outputDir,
		shooter:   shooter,
		used:      make(map[string]int),
	}
}

// Capture takes a screenshot and stores it.
func (s *ScreenshotStore) Capture(testName, stage string, isFailure bool) (string, error) {
	data, err := s.shooter.Screenshot()
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	rel := filepath.Join(ScreenshotsDir, s.fileName(testName, stage, isFailure))
	if err := atomicWriteFile(filepath.Join(s.outputDir, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// fileName returns a unique file name for the capture.
func (s *ScreenshotStore) fileName(testName, stage string, isFailure bool) string {
	base := sanitize(testName) + "-" + sanitize(stage)
	if isFailure && stage != core.StageFailure {
		base += "-failure"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[base]++
	if n := s.used[base]; n > 1 {
		base = fmt.Sprintf("%s-%d", base, n)
	}
	return base + ".png"
}

// sanitize keeps letters, digits, '-' and '_' and collapses the rest to '-'.
func sanitize(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "test"
	}
	return out
}

// Clean removes screenshots of a previous run.
func (s *ScreenshotStore) Clean() error {
	return os.RemoveAll(filepath.Join(s.outputDir, ScreenshotsDir))
}
