package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/logger"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

// DialogCoordinator runs a triggering action against the native dialogs it
// is expected to produce.
type DialogCoordinator struct {
	page       core.Page
	timeout    time.Duration // Wait for each dialog
	navTimeout time.Duration // Post-dialog navigation and late action outcome
	settle     time.Duration // Grace for further dialogs once the action finished
	acceptRest bool          // Accept dialogs beyond the declared sequence
	wait       func(time.Duration)
	onDialog   func(info core.DialogInfo, action scenario.DialogAction)
}

// TriggerResult describes what happened during a coordinated trigger.
type TriggerResult struct {
	ActionErr error             // Error of the triggering action, if it completed with one
	Handled   []core.DialogInfo // Dialogs resolved as declared, in order
}

// dialogQueue buffers dialogs from the driver's event goroutine without
// ever blocking it.
type dialogQueue struct {
	mu     sync.Mutex
	items  []core.Dialog
	notify chan struct{}
}

func newDialogQueue() *dialogQueue {
	return &dialogQueue{notify: make(chan struct{}, 1)}
}

func (q *dialogQueue) push(d core.Dialog) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *dialogQueue) pop() (core.Dialog, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	d := q.items[0]
	q.items = q.items[1:]
	return d, true
}

// trigger tracks the in-flight action.
type trigger struct {
	done      chan error
	finished  bool
	actionErr error
}

// doneChan returns nil once the outcome is known so select ignores it.
func (t *trigger) doneChan() <-chan error {
	if t.finished {
		return nil
	}
	return t.done
}

func (t *trigger) finish(err error) {
	t.finished = true
	t.actionErr = err
}

// Trigger arms a dialog listener, starts action, and resolves the dialogs
// it produces in the declared order. Once the sequence is handled the action
// gets the settle grace to finish; it is not waited for beyond that. The
// listener is removed on every exit.
func (c *DialogCoordinator) Trigger(action func() error, expectations ...scenario.DialogExpectation) (*TriggerResult, error) {
	res := &TriggerResult{}
	if len(expectations) == 0 {
		res.ActionErr = action()
		return res, res.ActionErr
	}

	q := newDialogQueue()
	remove := c.page.OnDialog(q.push)
	defer func() {
		if err := remove(); err != nil {
			logger.Warn("removing dialog listener: %v", err)
		}
	}()

	t := &trigger{done: make(chan error, 1)}
	go func() { t.done <- action() }()

	multi := len(expectations) > 1
	for i, exp := range expectations {
		d, err := c.await(q, t, multi, i, len(expectations))
		res.ActionErr = t.actionErr
		if err != nil {
			return res, err
		}

		info := core.DialogInfo{Kind: d.Kind(), Message: d.Message()}
		if err := c.resolve(d, exp); err != nil {
			return res, err
		}
		res.Handled = append(res.Handled, info)
		if c.onDialog != nil {
			c.onDialog(info, exp.ResolvedAction())
		}

		if exp.WaitForNavigation {
			if err := c.page.WaitForLoad(c.navTimeout); err != nil {
				return res, fmt.Errorf("wait for navigation after %s dialog: %w", info.Kind, err)
			}
			if exp.PostNavigationWaitMs > 0 {
				c.wait(time.Duration(exp.PostNavigationWaitMs) * time.Millisecond)
			}
		}
	}

	if err := c.drainExtra(q, t); err != nil {
		res.ActionErr = t.actionErr
		return res, err
	}
	res.ActionErr = t.actionErr
	if res.ActionErr != nil {
		logger.Debug("triggering action failed after its dialogs were handled: %v", res.ActionErr)
	}
	return res, nil
}

// await waits for the next dialog of the sequence.
func (c *DialogCoordinator) await(q *dialogQueue, t *trigger, multi bool, observed, want int) (core.Dialog, error) {
	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()

	var settle <-chan time.Time
	for {
		if d, ok := q.pop(); ok {
			return d, nil
		}

		if t.finished {
			if t.actionErr != nil && observed == 0 {
				return nil, withActionCause(core.ErrDialogNotTriggered.
					WithMessage("triggering action failed before any dialog appeared"), t.actionErr)
			}
			if multi && settle == nil {
				settleTimer := time.NewTimer(c.settle)
				defer settleTimer.Stop()
				settle = settleTimer.C
			}
		}

		select {
		case <-q.notify:
		case err := <-t.doneChan():
			t.finish(err)
		case <-settle:
			return nil, countMismatch(observed, want, t.actionErr)
		case <-deadline.C:
			c.awaitAction(t)
			if multi {
				return nil, countMismatch(observed, want, t.actionErr)
			}
			e := core.ErrDialogNotTriggered.WithMessagef("no dialog appeared within %s", c.timeout)
			if t.actionErr != nil {
				return nil, withActionCause(e, t.actionErr)
			}
			return nil, e
		}
	}
}

// awaitAction waits, bounded, for the action's own outcome.
func (c *DialogCoordinator) awaitAction(t *trigger) {
	if t.finished {
		return
	}
	timer := time.NewTimer(c.navTimeout)
	defer timer.Stop()
	select {
	case err := <-t.done:
		t.finish(err)
	case <-timer.C:
		logger.Warn("triggering action still running after %s", c.navTimeout)
	}
}

func countMismatch(observed, want int, cause error) error {
	e := core.ErrDialogCountMismatch.
		WithMessagef("observed %d of %d dialogs", observed, want).
		WithDetails(map[string]interface{}{"observed": observed, "expected": want})
	if cause != nil {
		return withActionCause(e, cause)
	}
	return e
}

// withActionCause attaches the triggering action's error as the cause and
// records its code under Details["actionCode"].
func withActionCause(e *core.ExecutionError, cause error) *core.ExecutionError {
	e = e.WithCause(cause)
	if code := core.CodeOf(cause); code != "" {
		e = e.WithDetails(map[string]interface{}{"actionCode": code})
	}
	return e
}

// resolve validates the kind and accepts or dismisses. A kind mismatch
// leaves the dialog open.
func (c *DialogCoordinator) resolve(d core.Dialog, exp scenario.DialogExpectation) error {
	if exp.Expect != "" && d.Kind() != exp.Expect {
		return core.ErrDialogKindMismatch.
			WithMessagef("expected %s dialog, got %s %q", exp.Expect, d.Kind(), d.Message()).
			WithDetails(map[string]interface{}{"expected": string(exp.Expect), "actual": string(d.Kind())})
	}

	if exp.ResolvedAction() == scenario.DialogDismiss {
		if err := d.Dismiss(); err != nil {
			return fmt.Errorf("dismiss %s dialog: %w", d.Kind(), err)
		}
		return nil
	}

	text := ""
	if d.Kind() == core.DialogPrompt {
		text = exp.PromptValue
		if text == "" {
			text = d.DefaultValue()
		}
	}
	if err := d.Accept(text); err != nil {
		return fmt.Errorf("accept %s dialog: %w", d.Kind(), err)
	}
	return nil
}

// drainExtra handles dialogs arriving after the declared sequence until the
// action finishes or the settle grace elapses.
func (c *DialogCoordinator) drainExtra(q *dialogQueue, t *trigger) error {
	settle := time.NewTimer(c.settle)
	defer settle.Stop()

	for {
		if d, ok := q.pop(); ok {
			if !c.acceptRest {
				return core.ErrDialogCountMismatch.
					WithMessagef("unexpected extra %s dialog %q after the declared sequence", d.Kind(), d.Message())
			}
			logger.Warn("accepting unexpected extra %s dialog %q", d.Kind(), d.Message())
			if err := d.Accept(d.DefaultValue()); err != nil {
				return fmt.Errorf("accept extra %s dialog: %w", d.Kind(), err)
			}
			continue
		}
		if t.finished {
			return nil
		}

		select {
		case <-q.notify:
		case err := <-t.doneChan():
			t.finish(err)
		case <-settle.C:
			return nil
		}
	}
}
