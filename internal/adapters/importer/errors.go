package importer

import "errors"

// Sentinel kinds for import errors.
var (
	ErrMissingFile   = errors.New("export file missing")
	ErrMissingColumn = errors.New("required column missing")
	ErrNoProfile     = errors.New("import needs a profile id")
)
