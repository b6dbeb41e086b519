package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/report"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
	"github.com/devicelab-dev/browser-runner/pkg/validator"
)

// Slow step threshold
const slowThreshold = 5 * time.Second

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// trace prints live progress from the runner callbacks. Nested tests are
// indented by hierarchy level.
type trace struct {
	w      io.Writer
	level  int
	tested int // Root tests started
}

func newTrace(w io.Writer) *trace {
	if w == nil {
		w = os.Stdout
	}
	return &trace{w: w}
}

func (t *trace) indent(extra int) string {
	return strings.Repeat("  ", 1+t.level+extra)
}

func (t *trace) setup(msg string) {
	fmt.Fprintf(t.w, "  %s %s\n", green("✓"), msg)
}

func (t *trace) warning(msg string) {
	fmt.Fprintf(t.w, "  %s %s\n", yellow("⚠"), msg)
}

func (t *trace) validationErrors(errs []*validator.ValidationError) {
	fmt.Fprintf(t.w, "\n%s\n", bold("Validation errors"))
	for _, err := range errs {
		fmt.Fprintf(t.w, "  %s %v\n", red("✗"), err)
	}
}

func (t *trace) onTestStart(name string, level int, skipNavigation bool) {
	t.level = level
	if level == 0 {
		t.tested++
		fmt.Fprintf(t.w, "\n  %s %s\n", cyan(fmt.Sprintf("[%d]", t.tested)), bold(name))
		fmt.Fprintln(t.w, "  "+strings.Repeat("─", 60))
		return
	}
	suffix := ""
	if skipNavigation {
		suffix = gray(" (continues on parent page)")
	}
	fmt.Fprintf(t.w, "%s%s %s%s\n", t.indent(0), cyan("▸"), bold(name), suffix)
}

func (t *trace) onStepComplete(_ string, o core.StepOutcome) {
	dur := formatDuration(o.Duration)
	switch {
	case o.Status == core.StatusFailed:
		fmt.Fprintf(t.w, "%s%s %s (%s)\n", t.indent(1), red("✗"), o.Description, dur)
		if o.Error != "" {
			fmt.Fprintf(t.w, "%s  %s %s\n", t.indent(1), gray("╰─"), o.Error)
		}
	case o.Duration >= slowThreshold:
		fmt.Fprintf(t.w, "%s%s %s %s\n", t.indent(1), yellow("⚠"), o.Description, yellow("("+dur+")"))
	default:
		fmt.Fprintf(t.w, "%s%s %s %s\n", t.indent(1), green("✓"), o.Description, gray("("+dur+")"))
	}
}

func (t *trace) onDialog(_ string, info core.DialogInfo, action scenario.DialogAction) {
	fmt.Fprintf(t.w, "%s%s %s %q %s %s\n", t.indent(2), cyan("◆"), info.Kind, info.Message, gray("→"), action)
}

func (t *trace) onTestEnd(res *core.TestResult) {
	t.level = res.HierarchyLevel
	dur := gray(formatDuration(res.Duration))
	if res.Passed() {
		fmt.Fprintf(t.w, "%s%s %s %s\n", t.indent(0), green("✓"), res.Name, dur)
		return
	}
	fmt.Fprintf(t.w, "%s%s %s %s\n", t.indent(0), red("✗"), res.Name, dur)
	for _, w := range res.Warnings {
		fmt.Fprintf(t.w, "%s  %s %s\n", t.indent(0), yellow("⚠"), w)
	}
}

// summary prints the result table.
func (t *trace) summary(result *core.RunResult) {
	const width = 84

	fmt.Fprintln(t.w)
	if result.Passed > 0 {
		fmt.Fprintf(t.w, "  %s (%s)\n", green(fmt.Sprintf("%d passing", result.Passed)), formatDuration(result.Duration))
	}
	if result.Failed > 0 {
		fmt.Fprintf(t.w, "  %s\n", red(fmt.Sprintf("%d failing", result.Failed)))
	}
	if result.Aborted {
		fmt.Fprintf(t.w, "  %s\n", yellow("run aborted (stopOnFailure)"))
	}
	if result.Cancelled {
		fmt.Fprintf(t.w, "  %s\n", yellow("run cancelled"))
	}
	fmt.Fprintln(t.w)

	fmt.Fprintln(t.w, strings.Repeat("═", width))
	fmt.Fprintf(t.w, "  %-50s %-8s %6s %5s %10s\n", "Test", "Status", "Steps", "Shots", "Duration")
	fmt.Fprintln(t.w, strings.Repeat("─", width))

	for _, res := range result.Results {
		name := strings.Repeat("  ", res.HierarchyLevel) + res.Name
		if len(name) > 50 {
			name = name[:47] + "..."
		}
		status := green(fmt.Sprintf("%-8s", "✓ PASS"))
		if !res.Passed() {
			status = red(fmt.Sprintf("%-8s", "✗ FAIL"))
		}
		fmt.Fprintf(t.w, "  %-50s %s %6d %5d %10s\n",
			name, status, len(res.Steps), len(res.Screenshots), formatDuration(res.Duration))
	}

	fmt.Fprintln(t.w, strings.Repeat("─", width))
	total := green(fmt.Sprintf("%-8s", fmt.Sprintf("%d/%d", result.Passed, result.Total)))
	if result.Failed > 0 || result.Aborted || result.Cancelled {
		total = red(fmt.Sprintf("%-8s", fmt.Sprintf("%d/%d", result.Passed, result.Total)))
	}
	fmt.Fprintf(t.w, "  %s %s %6s %5s %10s\n", bold(fmt.Sprintf("%-50s", "TOTAL")), total, "", "", formatDuration(result.Duration))
	fmt.Fprintln(t.w, strings.Repeat("═", width))

	for _, res := range result.Results {
		if res.Passed() {
			continue
		}
		fmt.Fprintf(t.w, "\n  %s %s\n", red("✗"), bold(res.Name))
		fmt.Fprintf(t.w, "    %s\n", res.ErrorMessage())
		for _, shot := range res.Screenshots {
			fmt.Fprintf(t.w, "    %s %s\n", gray("screenshot:"), shot)
		}
	}
}

func (t *trace) reports(outputDir string) {
	fmt.Fprintln(t.w)
	fmt.Fprintln(t.w, "  Reports:")
	fmt.Fprintf(t.w, "    JSON:   %s\n", filepath.Join(outputDir, report.JSONFile))
	fmt.Fprintf(t.w, "    JUnit:  %s\n", filepath.Join(outputDir, report.JUnitFile))
	fmt.Fprintf(t.w, "    Log:    %s\n", filepath.Join(outputDir, LogFile))
	fmt.Fprintln(t.w)
}

// formatDuration shows milliseconds below 1s, seconds below 1m.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dm %ds", ms/60000, (ms%60000)/1000)
}
