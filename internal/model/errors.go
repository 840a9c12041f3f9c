package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrConflict is returned when a write is based on a stale version of a resource.
	ErrConflict = errors.New("version conflict")
	// ErrNotAssigned is returned when a worker is not assigned to a job.
	ErrNotAssigned = errors.New("worker not assigned to job")
	// ErrNotAllowed is returned when an operation precondition is not met.
	ErrNotAllowed = errors.New("not allowed")
	// ErrOffline is returned when an operation requires connectivity.
	ErrOffline = errors.New("offline")
	// ErrUnauthenticated is returned when credentials are rejected.
	ErrUnauthenticated = errors.New("invalid credentials")
	// ErrNoSession is returned when there is no signed in worker.
	ErrNoSession = errors.New("no active session")
)
