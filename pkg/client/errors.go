package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrInvalidArgument is returned before any I/O when a caller argument is unusable
	// (non-positive limit, empty title or id).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("transport error")

	// ErrParse matches every *ParseError via errors.Is.
	ErrParse = errors.New("parse error")
)

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents dial, timeout and body read failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx and other non-2xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassAPI represents a MediaWiki {"error": {...}} envelope in a 200 response.
	ErrorClassAPI ErrorClass = "api"
)

// TransportError reports a request that did not produce a usable response.
type TransportError struct {
	// Action is the MediaWiki action of the failed request (query, wbgetentities).
	Action string

	ErrorClass ErrorClass

	// StatusCode is 0 for network errors.
	StatusCode int

	// Code and Message carry the upstream error code and info for ErrorClassAPI,
	// or the status text for HTTP errors.
	Code    string
	Message string

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.ErrorClass == ErrorClassAPI:
		return fmt.Sprintf("wiki %s api error [%s]: %s", e.Action, e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("wiki %s %s error (status %d): %s: %v",
			e.Action, e.ErrorClass, e.StatusCode, e.Message, e.Err)
	default:
		return fmt.Sprintf("wiki %s %s error (status %d): %s",
			e.Action, e.ErrorClass, e.StatusCode, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ParseError reports a response body that is not JSON or does not have the expected shape.
type ParseError struct {
	Action string

	// Path locates the offending value, e.g. "query.backlinks[3].title".
	// "$" denotes the whole body.
	Path string

	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wiki %s response at %s: %s: %v", e.Action, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("wiki %s response at %s: %s", e.Action, e.Path, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// classifyStatus maps a non-2xx HTTP status to an error class.
func classifyStatus(statusCode int) ErrorClass {
	if statusCode >= 400 && statusCode < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}
