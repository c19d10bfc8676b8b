// Package status decodes the overall progress document served by the task
// runner and applies its defaulting rules.
package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Activity flag field names. Both carry the same meaning; FieldIsActive is
// canonical and FieldIsRunningOrPending is the legacy spelling.
const (
	FieldProgress           = "progress"
	FieldIsActive           = "is_active"
	FieldIsRunningOrPending = "is_running_or_pending"
)

// ErrInvalidDocument is returned when the body is not a JSON object.
var ErrInvalidDocument = errors.New("invalid progress document")

// ProgressStatus is the decoded view of one progress document.
type ProgressStatus struct {
	// Progress is the completion percentage, clamped to [0, 100].
	Progress float64 `json:"progress"`
	// Active reports whether the indicator should be shown.
	Active bool `json:"active"`
}

// Decoder turns raw response bodies into ProgressStatus values.
type Decoder struct {
	activityField string
}

// NewDecoder builds a Decoder that reads the activity flag from field. An
// empty field falls back to FieldIsActive.
func NewDecoder(field string) Decoder {
	if field == "" {
		field = FieldIsActive
	}
	return Decoder{activityField: field}
}

// ActivityField reports the key the decoder reads the activity flag from.
func (d Decoder) ActivityField() string {
	if d.activityField == "" {
		return FieldIsActive
	}
	return d.activityField
}

// Decode parses data. Missing or non-numeric progress becomes 0 and any
// activity value other than the literal true becomes false.
func (d Decoder) Decode(data []byte) (ProgressStatus, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ProgressStatus{}, ErrInvalidDocument
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return ProgressStatus{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return ProgressStatus{
		Progress: progressValue(doc[FieldProgress]),
		Active:   activeValue(doc[d.ActivityField()]),
	}, nil
}

func progressValue(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var p float64
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0
	}
	return Clamp(p)
}

func activeValue(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "true"
}

// Clamp bounds p to the [0, 100] percentage range.
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
