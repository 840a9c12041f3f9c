// Package alert turns errors into messages that can be shown to a worker.
package alert

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

// Alert is a user facing error message.
type Alert struct {
	Title   string
	Message string
}

const genericMessage = "Something went wrong. Please try again."

// FromError returns the alert for an error.
func FromError(err error) Alert {
	if err == nil {
		return Alert{}
	}

	var decodeErr *document.DecodeError
	if errors.As(err, &decodeErr) {
		return Alert{Title: "Invalid Data", Message: fmt.Sprintf("The %s field is not valid: %s", decodeErr.Field, decodeErr.Reason)}
	}

	switch {
	case errors.Is(err, model.ErrNotValid):
		return Alert{Title: "Error", Message: detail(err, model.ErrNotValid)}
	case errors.Is(err, model.ErrNotAllowed):
		return Alert{Title: "Action Required", Message: detail(err, model.ErrNotAllowed)}
	case errors.Is(err, model.ErrUnauthenticated):
		return Alert{Title: "Login Failed", Message: "Invalid email or password"}
	case errors.Is(err, model.ErrNoSession):
		return Alert{Title: "Signed Out", Message: "Please sign in to continue."}
	case errors.Is(err, model.ErrNotAssigned):
		return Alert{Title: "Not Assigned", Message: "You are not assigned to this job."}
	case errors.Is(err, model.ErrConflict):
		return Alert{Title: "Job Changed", Message: "The job was updated by someone else. Refresh it and try again."}
	case errors.Is(err, model.ErrOffline):
		return Alert{Title: "Offline", Message: detail(err, model.ErrOffline)}
	case errors.Is(err, model.ErrNotFound):
		return Alert{Title: "Not Found", Message: "The requested item could not be found."}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "network"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"):
		return Alert{Title: "Network Error", Message: "Network error. Please check your internet connection"}
	case strings.Contains(msg, "many"):
		return Alert{Title: "Error", Message: "Too many attempts. Please try again later"}
	case strings.Contains(msg, "invalid"):
		return Alert{Title: "Error", Message: "Invalid email or password"}
	}

	return Alert{Title: "Error", Message: genericMessage}
}

// detail returns the error text without the sentinel suffix, capitalized.
func detail(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" || msg == sentinel.Error() {
		return genericMessage
	}

	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
