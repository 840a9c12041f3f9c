package alert_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/fieldwork/internal/alert"
	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

func TestFromError(t *testing.T) {
	tests := map[string]struct {
		err      error
		expAlert alert.Alert
	}{
		"No error should return an empty alert.": {
			expAlert: alert.Alert{},
		},
		"Validation errors should show their text.": {
			err:      fmt.Errorf("could not add task: %w", fmt.Errorf("task name is required: %w", model.ErrNotValid)),
			expAlert: alert.Alert{Title: "Error", Message: "Task name is required"},
		},
		"Decode errors should show the failing field.": {
			err:      fmt.Errorf("could not load jobs: %w", &document.DecodeError{Field: "job.jobStatus", Reason: "missing"}),
			expAlert: alert.Alert{Title: "Invalid Data", Message: "The job.jobStatus field is not valid: missing"},
		},
		"Precondition errors should show their text.": {
			err:      fmt.Errorf("customer signature is required to complete the job: %w", model.ErrNotAllowed),
			expAlert: alert.Alert{Title: "Action Required", Message: "Customer signature is required to complete the job"},
		},
		"A bare sentinel should use the generic message.": {
			err:      model.ErrNotValid,
			expAlert: alert.Alert{Title: "Error", Message: "Something went wrong. Please try again."},
		},
		"Rejected credentials should show the invalid credentials message.": {
			err:      fmt.Errorf("could not sign in: %w", model.ErrUnauthenticated),
			expAlert: alert.Alert{Title: "Login Failed", Message: "Invalid email or password"},
		},
		"Version conflicts should ask for a refresh.": {
			err:      fmt.Errorf("could not update job: %w", model.ErrConflict),
			expAlert: alert.Alert{Title: "Job Changed", Message: "The job was updated by someone else. Refresh it and try again."},
		},
		"Network errors should be detected by their text.": {
			err:      errors.New("dial tcp 10.0.0.1:443: connect: connection refused"),
			expAlert: alert.Alert{Title: "Network Error", Message: "Network error. Please check your internet connection"},
		},
		"Rate limit errors should be detected by their text.": {
			err:      errors.New("too many requests"),
			expAlert: alert.Alert{Title: "Error", Message: "Too many attempts. Please try again later"},
		},
		"Unknown errors should use the generic message.": {
			err:      errors.New("boom"),
			expAlert: alert.Alert{Title: "Error", Message: "Something went wrong. Please try again."},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expAlert, alert.FromError(test.err))
		})
	}
}
