package dom

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIndicatorPageInitialState checks the seeded elements match the page markup.
func TestIndicatorPageInitialState(t *testing.T) {
	t.Parallel()

	page := NewIndicatorPage()
	require.Equal(t, []string{BarID, ContainerID}, page.IDs())

	container, ok := page.ElementByID(ContainerID)
	require.True(t, ok)
	require.Equal(t, "none", container.Style(StyleDisplay))

	bar, ok := page.ElementByID(BarID)
	require.True(t, ok)
	require.Empty(t, bar.Style(StyleWidth))
	require.Empty(t, bar.Text())
}

// TestMemoryAddRemove covers element lifecycle in the in-memory document.
func TestMemoryAddRemove(t *testing.T) {
	t.Parallel()

	doc := NewMemory()
	_, ok := doc.ElementByID("missing")
	require.False(t, ok)

	el := doc.Add("x")
	el.SetStyle("color", "red")
	el.SetText("hello")

	got, ok := doc.ElementByID("x")
	require.True(t, ok)
	require.Equal(t, "red", got.Style("color"))
	require.Equal(t, "hello", got.Text())

	doc.Remove("x")
	_, ok = doc.ElementByID("x")
	require.False(t, ok)
}

// TestMemoryConcurrentMutation is meant to run under -race.
func TestMemoryConcurrentMutation(t *testing.T) {
	t.Parallel()

	doc := NewIndicatorPage()
	bar, _ := doc.ElementByID(BarID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bar.SetStyle(StyleWidth, "10%")
			bar.SetText("10%")
			_ = bar.Text()
			_ = doc.IDs()
		}()
	}
	wg.Wait()
	require.Equal(t, "10%", bar.Text())
}
