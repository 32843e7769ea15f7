package services

import "errors"

var (
	// ErrConfiguration marks a missing credential, model id or template value.
	ErrConfiguration = errors.New("configuration error")
	// ErrStorageUnavailable marks a vector index that is missing or empty.
	ErrStorageUnavailable = errors.New("vector store unavailable")
	// ErrProviderResponse marks a failed model call or a reply with no usable text.
	ErrProviderResponse = errors.New("language model provider error")
	// ErrEmptyQuestion is returned when a chat request carries no question.
	ErrEmptyQuestion = errors.New("question is required")
)
