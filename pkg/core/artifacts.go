// Package core provides the execution model types for browser-runner.
package core

// Screenshot stages used as capture tags.
const (
	StageBeforeSubmit = "before-submit"
	StageAfterSubmit  = "after-submit"
	StageFailure      = "failure"
)

// SubmitStage returns the capture tag for a named submit sub-step.
func SubmitStage(name string) string {
	return "submit-" + name
}

// ScreenshotCapturer turns a capture request into a stored artifact.
// The returned path is opaque to the executor and stored as-is.
type ScreenshotCapturer interface {
	Capture(testName, stage string, isFailure bool) (string, error)
}

// NullCapturer is a no-op implementation for testing
type NullCapturer struct{}

// Capture returns an empty path (no-op)
func (NullCapturer) Capture(_, _ string, _ bool) (string, error) { return "", nil }

// ScreenshotConfig controls when screenshots are requested
type ScreenshotConfig struct {
	BeforeSubmit bool `yaml:"beforeSubmit" json:"beforeSubmit"` // Default: false
	AfterSubmit  bool `yaml:"afterSubmit" json:"afterSubmit"`   // Default: true
	OnFailure    bool `yaml:"onFailure" json:"onFailure"`       // Default: true
	FullPage     bool `yaml:"fullPage" json:"fullPage"`         // Default: false
}

// DefaultScreenshotConfig returns sensible defaults for screenshot capture
func DefaultScreenshotConfig() ScreenshotConfig {
	return ScreenshotConfig{
		BeforeSubmit: false,
		AfterSubmit:  true,
		OnFailure:    true,
	}
}
