package study

import "errors"

var (
	// ErrStudyNotFound is returned when no study has the requested id.
	ErrStudyNotFound = errors.New("study not found")
	// ErrStudyExists is returned when a name produces an id already in use.
	ErrStudyExists = errors.New("a study with this name already exists")
	// ErrInvalidStudy wraps field validation failures.
	ErrInvalidStudy = errors.New("invalid study")
	// ErrLayerNotFound is returned when a study has no layer of the requested kind.
	ErrLayerNotFound = errors.New("layer not imported")
	// ErrInvalidKind is returned for an unknown layer kind.
	ErrInvalidKind = errors.New("invalid layer kind, expected outline or zones")
	// ErrZoneFieldsRequired is returned when a zones upload lacks column names.
	ErrZoneFieldsRequired = errors.New("id and name fields are required for zones")
)
