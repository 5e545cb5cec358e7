package domain

import "errors"

var (
	// Catalog errors
	ErrUnknownEnterprise = errors.New("unknown enterprise")
	ErrUnknownRule       = errors.New("unknown rule module")
	ErrInvalidTemplate   = errors.New("invalid posting template")
	ErrInvalidLayout     = errors.New("invalid column layout")

	// Input errors
	ErrInputMissing   = errors.New("input file missing")
	ErrInputMalformed = errors.New("input file malformed")

	// Run errors
	ErrRunNotFound      = errors.New("run not found")
	ErrRunInProgress    = errors.New("identical run already in progress")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrNoEntries        = errors.New("no entries generated")
)
