// Package document is the typed boundary between the shared document store
// wire shape and the application models. Everything read from the store, the
// local cache or fixture files is decoded and validated here.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slok/fieldwork/internal/model"
)

// DecodeError is returned when a document doesn't have the expected shape.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s: %s", e.Field, e.Reason)
}

// Unwrap makes decode errors match model.ErrNotValid.
func (e *DecodeError) Unwrap() error { return model.ErrNotValid }

func decodeErr(field, format string, args ...any) error {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

const dateLayout = "2006-01-02"

func parseTime(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, nil
	}
	return time.Time{}, decodeErr(field, "invalid time %q, RFC3339 or YYYY-MM-DD expected", v)
}

func parseOptionalTime(field, v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := parseTime(field, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func unmarshal(kind string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return decodeErr(kind, "malformed document: %s", err)
	}
	return nil
}
