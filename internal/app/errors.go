package service

import (
	"errors"
	"strings"
)

// Sentinel kinds for service errors.
var (
	ErrCompetitorNotRanked = errors.New("competitor not ranked")
	ErrRoundNotFound       = errors.New("round not found")
	ErrNotStarted          = errors.New("service not started")
)

// SourceError is one data provider failure.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string { return e.Err.Error() }

func (e SourceError) Unwrap() error { return e.Err }

// FetchError reports every provider that failed during one fetch. Its message
// joins the individual messages with "; ".
type FetchError struct {
	Failures []SourceError
}

func (e *FetchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *FetchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Sources lists the failing sources in fetch order.
func (e *FetchError) Sources() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Source
	}
	return out
}
