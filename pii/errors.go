package pii

import "errors"

var (
	// ErrEmptyText is returned when the text to analyze is empty.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrUnsupportedLanguage is returned for a language no recognizer serves.
	ErrUnsupportedLanguage = errors.New("no matching recognizers were found to serve the request")
	// ErrUnknownEntity is returned when a request names an entity type that
	// no configured detector can emit.
	ErrUnknownEntity = errors.New("unsupported entity type")
)
