package domain

import "errors"

var (
	// ErrEmptyQuery indicates an empty or whitespace-only query
	ErrEmptyQuery = errors.New("query is empty")
	// ErrRetrieval indicates the vector store was unavailable or timed out
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration indicates the text-generation provider failed or timed out
	ErrGeneration = errors.New("generation failed")
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited indicates rate limit exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
