package migrate

import "errors"

// Sentinel errors for the migration chain.
var (
	// ErrInvalidVersion indicates a version tag that is not "major.minor".
	ErrInvalidVersion = errors.New("invalid version")

	// ErrDuplicateStep indicates two steps registered for the same version.
	ErrDuplicateStep = errors.New("duplicate migration step")

	// ErrStepLoop indicates a step that does not move the version forward.
	ErrStepLoop = errors.New("migration step does not advance version")

	// ErrStuck indicates the target refused to record a step's version.
	ErrStuck = errors.New("migration did not advance")
)
