// Package terminal renders the progress indicator as a single redrawn line on
// a terminal, backed by a dom.Document so the indicator render step drives it
// unchanged.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/overall-progress/internal/dom"
)

const clearLine = "\r\x1b[2K"

var labelStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("39")).
	Bold(true)

// Document is a dom.Document with the container and bar elements. Every
// mutation redraws the line; a hidden container clears it.
type Document struct {
	mu        sync.Mutex
	out       io.Writer
	bar       progress.Model
	container *element
	barEl     *element
	lastLine  string
	err       error
}

// New creates a Document drawing a bar width columns wide to out.
func New(out io.Writer, width int) *Document {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
		progress.WithWidth(width),
	)
	d := &Document{out: out, bar: bar}
	d.container = &element{doc: d, styles: map[string]string{dom.StyleDisplay: "none"}}
	d.barEl = &element{doc: d, styles: map[string]string{}}
	return d
}

// ElementByID implements dom.Document.
func (d *Document) ElementByID(id string) (dom.Element, bool) {
	switch id {
	case dom.ContainerID:
		return d.container, true
	case dom.BarID:
		return d.barEl, true
	default:
		return nil, false
	}
}

// Err returns the first write error, if any.
func (d *Document) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Close clears a drawn line.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastLine == "" {
		return nil
	}
	d.lastLine = ""
	if _, err := io.WriteString(d.out, clearLine); err != nil {
		return fmt.Errorf("clear terminal line: %w", err)
	}
	return nil
}

// redrawLocked must be called with d.mu held.
func (d *Document) redrawLocked() {
	line := ""
	if d.container.styles[dom.StyleDisplay] == "block" {
		ratio := ParseWidth(d.barEl.styles[dom.StyleWidth])
		line = labelStyle.Render(fmt.Sprintf("%6s", d.barEl.text)) + " " + d.bar.ViewAs(ratio)
	}
	if line == d.lastLine {
		return
	}
	d.lastLine = line
	if _, err := io.WriteString(d.out, clearLine+line); err != nil && d.err == nil {
		d.err = fmt.Errorf("write terminal line: %w", err)
	}
}

// ParseWidth converts a CSS percentage such as "42%" into a 0..1 ratio.
// Anything unparsable is 0.
func ParseWidth(width string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(width), "%"), 64)
	if err != nil || v < 0 {
		return 0
	}
	if v > 100 {
		return 1
	}
	return v / 100
}

type element struct {
	doc    *Document
	styles map[string]string
	text   string
}

func (e *element) SetStyle(prop, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.styles[prop] = value
	e.doc.redrawLocked()
}

func (e *element) Style(prop string) string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.styles[prop]
}

func (e *element) SetText(text string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.text = text
	e.doc.redrawLocked()
}

func (e *element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.text
}
