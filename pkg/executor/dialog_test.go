package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/driver/mock"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

func newCoordinator(page core.Page) *DialogCoordinator {
	return &DialogCoordinator{
		page:       page,
		timeout:    200 * time.Millisecond,
		navTimeout: 500 * time.Millisecond,
		settle:     50 * time.Millisecond,
		wait:       func(time.Duration) {},
	}
}

func expect(kind core.DialogKind, action scenario.DialogAction) scenario.DialogExpectation {
	return scenario.DialogExpectation{Expect: kind, Action: action}
}

// clickOpening returns a click action whose page script opens the given
// dialogs one after another and reports what each returned.
func clickOpening(page *mock.Page, results chan<- []mock.DialogResult, dialogs ...core.DialogKind) func() error {
	el := page.Add("#trigger", &mock.Element{})
	el.OnClick = func() {
		var out []mock.DialogResult
		for i, kind := range dialogs {
			out = append(out, page.OpenDialog(kind, "dialog "+string(rune('A'+i)), "guest"))
		}
		results <- out
	}
	return el.Click
}

func awaitClick(t *testing.T, results <-chan []mock.DialogResult) []mock.DialogResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("click never completed")
		return nil
	}
}

func TestDialogCoordinator_AcceptConfirm(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	var seen []core.DialogInfo
	c.onDialog = func(info core.DialogInfo, _ scenario.DialogAction) { seen = append(seen, info) }

	res, err := c.Trigger(clickOpening(page, results, core.DialogConfirm), expect(core.DialogConfirm, scenario.DialogAccept))
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if len(res.Handled) != 1 || res.Handled[0].Kind != core.DialogConfirm {
		t.Errorf("Handled = %+v", res.Handled)
	}
	if got := awaitClick(t, results); !got[0].Accepted {
		t.Error("confirm was not accepted")
	}
	if len(seen) != 1 {
		t.Errorf("onDialog called %d times, want 1", len(seen))
	}
	if page.ListenerCount() != 0 {
		t.Errorf("listener left registered")
	}
}

// The click does not return until the dialog it opened is resolved, so the
// listener must be armed before the click and serviced while it is running.
func TestDialogCoordinator_ClickBlocksUntilDismissed(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	_, err := c.Trigger(clickOpening(page, results, core.DialogConfirm), expect(core.DialogConfirm, scenario.DialogDismiss))
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if got := awaitClick(t, results); got[0].Accepted {
		t.Error("confirm should have been dismissed")
	}
	if len(page.UnhandledDialogs()) != 0 {
		t.Error("dialog reached the unhandled fallback")
	}
}

func TestDialogCoordinator_Prompt(t *testing.T) {
	tests := []struct {
		name        string
		promptValue string
		want        string
	}{
		{"explicit value", "bob", "bob"},
		{"default value", "", "guest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := mock.New(mock.Config{})
			results := make(chan []mock.DialogResult, 1)
			c := newCoordinator(page)

			exp := expect(core.DialogPrompt, scenario.DialogAccept)
			exp.PromptValue = tt.promptValue
			if _, err := c.Trigger(clickOpening(page, results, core.DialogPrompt), exp); err != nil {
				t.Fatalf("Trigger() error: %v", err)
			}
			got := awaitClick(t, results)
			if !got[0].Accepted || got[0].Text != tt.want {
				t.Errorf("prompt result = %+v, want accepted %q", got[0], tt.want)
			}
		})
	}
}

func TestDialogCoordinator_KindMismatchLeavesDialogOpen(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	_, err := c.Trigger(clickOpening(page, results, core.DialogAlert), expect(core.DialogConfirm, scenario.DialogAccept))
	if !errors.Is(err, core.ErrDialogKindMismatch) {
		t.Fatalf("expected ErrDialogKindMismatch, got %v", err)
	}
	if n := page.DismissOpenDialogs(); n != 1 {
		t.Errorf("open dialogs = %d, want 1", n)
	}
	awaitClick(t, results)
	if page.ListenerCount() != 0 {
		t.Error("listener left registered after failure")
	}
}

func TestDialogCoordinator_NotTriggered(t *testing.T) {
	page := mock.New(mock.Config{})
	el := page.Add("#plain", &mock.Element{})
	c := newCoordinator(page)

	res, err := c.Trigger(el.Click, expect(core.DialogAlert, scenario.DialogAccept))
	if !errors.Is(err, core.ErrDialogNotTriggered) {
		t.Fatalf("expected ErrDialogNotTriggered, got %v", err)
	}
	if len(res.Handled) != 0 {
		t.Errorf("Handled = %+v", res.Handled)
	}
	if el.Clicks != 1 {
		t.Errorf("Clicks = %d, want 1", el.Clicks)
	}
}

func TestDialogCoordinator_ActionFailsBeforeDialog(t *testing.T) {
	page := mock.New(mock.Config{})
	boom := errors.New("element detached")
	el := page.Add("#broken", &mock.Element{ClickErr: boom})
	c := newCoordinator(page)
	c.timeout = time.Hour

	start := time.Now()
	res, err := c.Trigger(el.Click, expect(core.DialogAlert, scenario.DialogAccept))
	if !errors.Is(err, core.ErrDialogNotTriggered) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrDialogNotTriggered caused by click error, got %v", err)
	}
	if res.ActionErr != boom {
		t.Errorf("ActionErr = %v", res.ActionErr)
	}
	if time.Since(start) > time.Second {
		t.Error("waited for the dialog timeout after the action failed")
	}
}

func TestDialogCoordinator_ActionCodeRecorded(t *testing.T) {
	page := mock.New(mock.Config{})
	navErr := core.ErrNavigationTimeout.WithMessage("no navigation within 1s")
	el := page.Add("#broken", &mock.Element{ClickErr: navErr})
	c := newCoordinator(page)

	_, err := c.Trigger(el.Click, expect(core.DialogAlert, scenario.DialogAccept))

	if core.CodeOf(err) != core.CodeDialogNotTriggered {
		t.Errorf("code = %q, want %q", core.CodeOf(err), core.CodeDialogNotTriggered)
	}
	if !errors.Is(err, core.ErrNavigationTimeout) {
		t.Errorf("action error not preserved as cause: %v", err)
	}
	var ee *core.ExecutionError
	if !errors.As(err, &ee) || ee.Details["actionCode"] != core.CodeNavigationTimeout {
		t.Errorf("Details = %v, want actionCode %q", ee.Details, core.CodeNavigationTimeout)
	}
}

func TestDialogCoordinator_Sequence(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	res, err := c.Trigger(
		clickOpening(page, results, core.DialogConfirm, core.DialogAlert),
		expect(core.DialogConfirm, scenario.DialogDismiss),
		expect(core.DialogAlert, scenario.DialogAccept),
	)
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if len(res.Handled) != 2 {
		t.Fatalf("Handled = %d, want 2", len(res.Handled))
	}
	got := awaitClick(t, results)
	if got[0].Accepted || !got[1].Accepted {
		t.Errorf("results = %+v, want dismissed then accepted", got)
	}
}

func TestDialogCoordinator_SequenceTooFew(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	res, err := c.Trigger(
		clickOpening(page, results, core.DialogAlert),
		expect(core.DialogAlert, scenario.DialogAccept),
		expect(core.DialogAlert, scenario.DialogAccept),
	)
	if !errors.Is(err, core.ErrDialogCountMismatch) {
		t.Fatalf("expected ErrDialogCountMismatch, got %v", err)
	}
	if len(res.Handled) != 1 {
		t.Errorf("Handled = %d, want 1", len(res.Handled))
	}
}

func TestDialogCoordinator_SequenceExtraDialog(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	_, err := c.Trigger(
		clickOpening(page, results, core.DialogAlert, core.DialogAlert, core.DialogAlert),
		expect(core.DialogAlert, scenario.DialogAccept),
		expect(core.DialogAlert, scenario.DialogAccept),
	)
	if !errors.Is(err, core.ErrDialogCountMismatch) {
		t.Fatalf("expected ErrDialogCountMismatch, got %v", err)
	}
	page.DismissOpenDialogs()
	awaitClick(t, results)
}

func TestDialogCoordinator_SequenceExtraDialogAutoAccepted(t *testing.T) {
	page := mock.New(mock.Config{})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)
	c.acceptRest = true

	_, err := c.Trigger(
		clickOpening(page, results, core.DialogAlert, core.DialogAlert, core.DialogConfirm),
		expect(core.DialogAlert, scenario.DialogAccept),
		expect(core.DialogAlert, scenario.DialogAccept),
	)
	if err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if got := awaitClick(t, results); !got[2].Accepted {
		t.Error("extra confirm was not accepted")
	}
}

func TestDialogCoordinator_WaitForNavigation(t *testing.T) {
	loadErr := errors.New("load timeout")
	page := mock.New(mock.Config{LoadErr: loadErr})
	results := make(chan []mock.DialogResult, 1)
	c := newCoordinator(page)

	exp := expect(core.DialogConfirm, scenario.DialogAccept)
	exp.WaitForNavigation = true
	_, err := c.Trigger(clickOpening(page, results, core.DialogConfirm), exp)
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
	awaitClick(t, results)
}

func TestDialogCoordinator_NoExpectations(t *testing.T) {
	page := mock.New(mock.Config{})
	el := page.Add("#plain", &mock.Element{})
	c := newCoordinator(page)

	if _, err := c.Trigger(el.Click); err != nil {
		t.Fatalf("Trigger() error: %v", err)
	}
	if page.ListenerCount() != 0 {
		t.Error("listener registered without expectations")
	}
}
