package executor

import (
	"sync"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

func byID(v string) scenario.Selector {
	return scenario.Selector{Strategy: scenario.StrategyID, Value: v}
}

func base(kind scenario.StepKind) scenario.BaseStep {
	return scenario.BaseStep{StepKind: kind}
}

func inputStep(id, value string) *scenario.InputStep {
	return &scenario.InputStep{BaseStep: base(scenario.StepInput), Selector: byID(id), Value: value}
}

func clickStep(id string) *scenario.ClickStep {
	return &scenario.ClickStep{BaseStep: base(scenario.StepClick), Selector: byID(id)}
}

func dialogStep(kind core.DialogKind, action scenario.DialogAction) *scenario.DialogStep {
	return &scenario.DialogStep{
		BaseStep:          base(scenario.StepDialog),
		DialogExpectation: scenario.DialogExpectation{Expect: kind, Action: action},
	}
}

func textAssertion(id, expected string) scenario.Assertion {
	return scenario.Assertion{Kind: scenario.AssertText, Selector: byID(id), Expected: expected}
}

// testConfig keeps every wait short so failing paths finish quickly.
func testConfig() RunnerConfig {
	return RunnerConfig{
		BaseURL:           "https://app.test",
		ActionTimeout:     200 * time.Millisecond,
		NavigationTimeout: 500 * time.Millisecond,
		DialogSettle:      50 * time.Millisecond,
		Screenshots:       core.ScreenshotConfig{},
	}
}

// recordingCapturer records capture requests and returns "<test>/<stage>".
type recordingCapturer struct {
	mu       sync.Mutex
	calls    []string
	failures []bool
	err      error
}

func (c *recordingCapturer) Capture(test, stage string, isFailure bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	path := test + "/" + stage
	c.calls = append(c.calls, path)
	c.failures = append(c.failures, isFailure)
	return path, nil
}
