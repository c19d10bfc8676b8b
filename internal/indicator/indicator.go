// Package indicator applies progress values to the navbar progress elements
// of a dom.Document.
package indicator

import (
	"strconv"

	"github.com/JakeFAU/overall-progress/internal/dom"
)

// Display values toggled on the container.
const (
	DisplayShown  = "block"
	DisplayHidden = "none"
)

// View is a read-back of the indicator elements.
type View struct {
	ContainerFound   bool   `json:"container_found"`
	ContainerVisible bool   `json:"container_visible"`
	BarFound         bool   `json:"bar_found"`
	BarWidth         string `json:"bar_width"`
	BarLabel         string `json:"bar_label"`
}

// Percent formats p the way the bar shows it, e.g. "42%" or "42.5%".
func Percent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// Render shows or hides the container and, when visible, sets the bar width
// and label to progress. A hidden indicator leaves the bar untouched. It
// reports false when the container is not on the page, in which case nothing
// is mutated. Elements are looked up on every call.
func Render(doc dom.Document, progress float64, visible bool) bool {
	if doc == nil {
		return false
	}
	container, ok := doc.ElementByID(dom.ContainerID)
	if !ok {
		return false
	}
	if !visible {
		container.SetStyle(dom.StyleDisplay, DisplayHidden)
		return true
	}
	container.SetStyle(dom.StyleDisplay, DisplayShown)
	if bar, ok := doc.ElementByID(dom.BarID); ok {
		label := Percent(progress)
		bar.SetStyle(dom.StyleWidth, label)
		bar.SetText(label)
	}
	return true
}

// Read captures the current state of the indicator elements.
func Read(doc dom.Document) View {
	var v View
	if doc == nil {
		return v
	}
	if container, ok := doc.ElementByID(dom.ContainerID); ok {
		v.ContainerFound = true
		v.ContainerVisible = container.Style(dom.StyleDisplay) == DisplayShown
	}
	if bar, ok := doc.ElementByID(dom.BarID); ok {
		v.BarFound = true
		v.BarWidth = bar.Style(dom.StyleWidth)
		v.BarLabel = bar.Text()
	}
	return v
}
