package model

import "time"

// Worker is a field technician profile.
type Worker struct {
	ID          string
	UID         string
	Email       string
	FullName    string
	Role        string
	FieldWorker bool
	Online      bool
	LastSeen    *time.Time
}

// Identity is an authenticated identity returned by the identity provider.
type Identity struct {
	UID   string
	Email string
}
