package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

// WriteJUnit writes junit-report.xml into outputDir.
func WriteJUnit(outputDir string, r *Report) error {
	path := filepath.Join(outputDir, JUnitFile)
	if err := atomicWriteFile(path, []byte(buildJUnitXML(r)), 0o644); err != nil {
		return fmt.Errorf("write junit xml: %w", err)
	}
	return nil
}

// buildJUnitXML renders the report as one suite with a testcase per result.
func buildJUnitXML(r *Report) string {
	totalTime := float64(r.Duration) / 1000.0

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(fmt.Sprintf(
		`<testsuites tests="%d" failures="%d" errors="0" time="%.3f">`+"\n",
		r.Summary.Total, r.Summary.Failed, totalTime,
	))
	b.WriteString(fmt.Sprintf(
		`  <testsuite name="%s" tests="%d" failures="%d" errors="0" time="%.3f" timestamp="%s">`+"\n",
		xmlEscape(suiteName(r)), r.Summary.Total, r.Summary.Failed, totalTime, r.StartTime.Format(time.RFC3339),
	))

	for i := range r.Results {
		b.WriteString(buildTestCase(&r.Results[i]))
	}

	b.WriteString("  </testsuite>\n")
	b.WriteString("</testsuites>\n")
	return b.String()
}

func suiteName(r *Report) string {
	if r.Runner.Name != "" {
		return r.Runner.Name
	}
	return "browser-runner"
}

func buildTestCase(res *core.TestResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(
		`    <testcase name="%s" classname="level%d" time="%.3f">`+"\n",
		xmlEscape(res.Name), res.HierarchyLevel, res.Duration.Seconds(),
	))

	b.WriteString("      <properties>\n")
	if res.URL != "" {
		b.WriteString(fmt.Sprintf(`        <property name="url" value="%s"/>`+"\n", xmlEscape(res.URL)))
	}
	b.WriteString(fmt.Sprintf(`        <property name="skippedNavigation" value="%t"/>`+"\n", res.SkippedNavigation))
	b.WriteString("      </properties>\n")

	if res.Status == core.StatusFailed {
		b.WriteString(fmt.Sprintf(
			`      <failure message="%s" type="%s">%s</failure>`+"\n",
			xmlEscape(res.ErrorMessage()),
			failureType(res.ErrorCode),
			xmlEscape(failedOutcome(res)),
		))
	}

	if len(res.Screenshots) > 0 {
		b.WriteString("      <system-out>")
		for _, s := range res.Screenshots {
			b.WriteString(xmlEscape("[[ATTACHMENT|" + s + "]]\n"))
		}
		b.WriteString("</system-out>\n")
	}

	b.WriteString("    </testcase>\n")
	return b.String()
}

// failedOutcome describes the first failed step, submit sub-step or assertion.
func failedOutcome(res *core.TestResult) string {
	for _, list := range [][]core.StepOutcome{res.Steps, res.Submit, res.Assertions} {
		for _, o := range list {
			if o.Status == core.StatusFailed {
				return o.Description
			}
		}
	}
	return ""
}

// failureType maps an error code to a JUnit failure type.
func failureType(code string) string {
	switch code {
	case core.CodeAssertionFailed, core.CodeValueMismatch:
		return "AssertionError"
	case core.CodeElementNotFound:
		return "ElementNotFoundError"
	case core.CodeDialogKindMismatch, core.CodeDialogNotTriggered, core.CodeDialogCountMismatch, core.CodeUnexpectedDialog:
		return "DialogError"
	case core.CodeNavigationTimeout:
		return "TimeoutError"
	case core.CodeUnknownSelectorStrategy, core.CodeUnknownStepKind, core.CodeInvalidScenario:
		return "ScenarioError"
	default:
		return "TestError"
	}
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
