// Package dom models the small slice of a page the progress indicator needs:
// elements addressed by id carrying inline styles and text.
package dom

import (
	"sort"
	"sync"
)

// Element ids the indicator binds to.
const (
	ContainerID = "overall-progress-container"
	BarID       = "overall-progress-bar"
)

// Style properties written by the indicator.
const (
	StyleDisplay = "display"
	StyleWidth   = "width"
)

// Document looks up elements by id.
type Document interface {
	ElementByID(id string) (Element, bool)
}

// Element is a mutable node with inline styles and text content.
type Element interface {
	SetStyle(prop, value string)
	Style(prop string) string
	SetText(text string)
	Text() string
}

// Memory is an in-memory Document. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	elements map[string]*memoryElement
}

// NewMemory creates a document holding empty elements for ids.
func NewMemory(ids ...string) *Memory {
	m := &Memory{elements: make(map[string]*memoryElement, len(ids))}
	for _, id := range ids {
		m.Add(id)
	}
	return m
}

// NewIndicatorPage creates a document with the container hidden and an empty
// bar, matching the initial page markup.
func NewIndicatorPage() *Memory {
	m := NewMemory(ContainerID, BarID)
	container, _ := m.ElementByID(ContainerID)
	container.SetStyle(StyleDisplay, "none")
	return m
}

// Add inserts an empty element for id, replacing any existing one.
func (m *Memory) Add(id string) Element {
	el := &memoryElement{styles: map[string]string{}}
	m.mu.Lock()
	m.elements[id] = el
	m.mu.Unlock()
	return el
}

// Remove deletes the element for id.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	delete(m.elements, id)
	m.mu.Unlock()
}

// IDs returns the element ids in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.elements))
	for id := range m.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ElementByID implements Document.
func (m *Memory) ElementByID(id string) (Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

type memoryElement struct {
	mu     sync.RWMutex
	styles map[string]string
	text   string
}

func (e *memoryElement) SetStyle(prop, value string) {
	e.mu.Lock()
	e.styles[prop] = value
	e.mu.Unlock()
}

func (e *memoryElement) Style(prop string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.styles[prop]
}

func (e *memoryElement) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

func (e *memoryElement) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text
}
