package headless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/overall-progress/internal/dom"
	"github.com/JakeFAU/overall-progress/internal/indicator"
)

func TestScriptsQuoteArguments(t *testing.T) {
	t.Parallel()

	require.Equal(t, `document.getElementById("overall-progress-bar") !== null`, existsScript(dom.BarID))
	require.Equal(t,
		`(() => { const el = document.getElementById("overall-progress-bar"); if (el) { el.style["width"] = "42%"; } })()`,
		setStyleScript(dom.BarID, dom.StyleWidth, "42%"),
	)
	require.Contains(t, setTextScript("x", `"); alert(1); ("`), `"\"); alert(1); (\""`)
	require.Contains(t, getStyleScript("x", "display"), `el.style["display"]`)
	require.Contains(t, getTextScript("x"), `el.innerText`)
}

func TestOpenRequiresPageURL(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{}, nil)
	require.Error(t, err)
}

const indicatorPage = `<!doctype html><html><body>
<nav><div id="overall-progress-container" style="display:none">
<div id="overall-progress-bar"></div></div></nav></body></html>`

// TestRenderAgainstChrome runs the indicator render step against a real page.
func TestRenderAgainstChrome(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	execPath := findChrome()
	if execPath == "" {
		t.Skip("chrome not installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(indicatorPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	doc, err := Open(ctx, Config{PageURL: srv.URL, ExecPath: execPath}, nil)
	require.NoError(t, err)
	defer doc.Close()

	require.True(t, indicator.Render(doc, 42, true))
	view := indicator.Read(doc)
	require.True(t, view.ContainerVisible)
	require.Equal(t, "42%", view.BarWidth)
	require.Equal(t, "42%", view.BarLabel)

	require.True(t, indicator.Render(doc, 0, false))
	require.False(t, indicator.Read(doc).ContainerVisible)
	require.NoError(t, doc.Err())
}

func findChrome() string {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
