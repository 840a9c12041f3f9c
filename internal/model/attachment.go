package model

import (
	"fmt"
	"time"
)

// SignatureKind identifies who signed a job.
type SignatureKind string

const (
	SignatureKindTechnician SignatureKind = "technician"
	SignatureKindCustomer   SignatureKind = "customer"
)

// ParseSignatureKind parses a signature kind.
func ParseSignatureKind(s string) (SignatureKind, error) {
	switch SignatureKind(s) {
	case SignatureKindTechnician, SignatureKindCustomer:
		return SignatureKind(s), nil
	}
	return "", fmt.Errorf("unknown signature kind %q: %w", s, ErrNotValid)
}

// Signature is a captured signature of a job, one per kind and worker.
type Signature struct {
	JobID     string
	Kind      SignatureKind
	WorkerID  string
	URL       string
	SignedBy  string
	Timestamp time.Time
}

// Image is a photo attached to a job.
type Image struct {
	ID          string
	JobID       string
	URL         string
	Description string
	UploadedBy  string
	CreatedAt   time.Time
}
