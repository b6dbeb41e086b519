//go:build acceptance

package playwright

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/executor"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
)

const loginHTML = `<!doctype html>
<html><body>
<form id="f" onsubmit="return false">
  <input id="username"><input id="password" type="password">
  <select id="country"><option value="us">US</option><option value="ca">Canada</option></select>
  <button id="loginBtn" type="button" onclick="login()">Login</button>
  <button id="delete" type="button" onclick="confirm('Delete?')">Delete</button>
</form>
<p id="status">idle</p>
<script>
function login() {
  const ok = document.getElementById('username').value === 'admin' &&
    document.getElementById('password').value === 'secret';
  if (ok) { location.href = '/welcome'; } else { document.getElementById('status').textContent = 'Denied'; }
}
</script>
</body></html>`

const welcomeHTML = `<!doctype html>
<html><body>
<p id="welcome">Welcome, admin!</p>
<button id="delete" type="button" onclick="if (confirm('Delete?')) document.getElementById('status').textContent='deleted'">Delete</button>
<p id="status">idle</p>
</body></html>`

const suiteYAML = `
name: acceptance
tests:
  - name: login
    url: /
    steps:
      - input: {selector: {id: username}, value: admin}
      - input: {selector: {id: password}, value: secret}
      - select: {selector: {id: country}, by: index, index: 1, verify: true}
    submit:
      click: {selector: {id: loginBtn}, waitForNavigation: true}
    assertions:
      - text: {selector: {id: welcome}, expected: "Welcome, admin!"}
    children:
      - name: delete
        steps:
          - click: {selector: {id: delete}}
          - dialog: {expect: confirm, action: accept}
        assertions:
          - text: {selector: {id: status}, expected: deleted}
`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		page := loginHTML
		if r.URL.Path == "/welcome" {
			page = welcomeHTML
		}
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := Launch(SessionConfig{
		Browser:  "chromium",
		Headless: os.Getenv("HEADLESS") != "false",
	})
	require.NoError(t, err, "failed to launch browser")
	t.Cleanup(s.Close)
	return s
}

func TestAcceptance_LoginAndDialog(t *testing.T) {
	srv := newServer(t)

	suite, err := scenario.Parse([]byte(suiteYAML), "acceptance.yaml")
	require.NoError(t, err)

	s := newSession(t)
	walker := executor.NewWalker(s.Page(), executor.RunnerConfig{
		BaseURL:       srv.URL,
		ActionTimeout: 5 * time.Second,
	})

	run, err := walker.Run(context.Background(), suite.Tests)
	require.NoError(t, err)
	require.Equal(t, 2, run.Total)
	for _, r := range run.Results {
		require.Equal(t, core.StatusPassed, r.Status, "test %s: %s", r.Name, r.ErrorMessage())
	}
	require.Len(t, run.Results[0].Steps, 3)
	require.Equal(t, srv.URL+"/welcome", run.Results[0].URL)
	require.True(t, run.Results[1].SkippedNavigation)
	require.Empty(t, s.Page().UnhandledDialogs())
}

func TestAcceptance_UnexpectedDialogIsReported(t *testing.T) {
	srv := newServer(t)

	s := newSession(t)
	d := s.Page()
	require.NoError(t, d.Navigate(srv.URL, 10*time.Second))

	el, err := d.WaitForElement("#delete", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, el.Click())

	require.Eventually(t, func() bool {
		return len(d.UnhandledDialogs()) == 1
	}, 5*time.Second, 50*time.Millisecond)
}
