package domain

import "errors"

var (
	ErrJobNotFound            = errors.New("job not found")
	ErrMissingResult          = errors.New("job has no result")
	ErrInvalidJobState        = errors.New("job is not in a correctable state")
	ErrDuplicateDocument      = errors.New("duplicate document hash in batch")
	ErrNationalityRuleMissing = errors.New("no checklist rule for nationality")
	ErrConflictingDocuments   = errors.New("conflicting documents in bundle")
	ErrChecklistBlocked       = errors.New("checklist blocked")
	ErrMediaNotFound          = errors.New("media not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
)
