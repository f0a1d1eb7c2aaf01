package client

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   ErrorClass
	}{
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{302, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.statusCode); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.statusCode, got, tt.expected)
		}
	}
}

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TransportError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &TransportError{
				Action:     "query",
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "wiki query network error (status 0): request failed: connection refused",
		},
		{
			name: "http status error",
			err: &TransportError{
				Action:     "wbgetentities",
				ErrorClass: ErrorClassServer,
				StatusCode: 503,
				Message:    "503 Service Unavailable",
			},
			expected: "wiki wbgetentities server error (status 503): 503 Service Unavailable",
		},
		{
			name: "api error envelope",
			err: &TransportError{
				Action:     "query",
				ErrorClass: ErrorClassAPI,
				StatusCode: 200,
				Code:       "badcontinue",
				Message:    "Invalid continue param.",
			},
			expected: "wiki query api error [badcontinue]: Invalid continue param.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	err := &TransportError{ErrorClass: ErrorClassNetwork, Err: context.DeadlineExceeded}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should find the wrapped error")
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("errors.Is should match ErrTransport")
	}
	if errors.Is(err, ErrParse) {
		t.Error("TransportError must not match ErrParse")
	}
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &ParseError{Action: "query", Path: "$", Message: "invalid JSON object", Err: cause}

	want := "wiki query response at $: invalid JSON object: unexpected end of JSON input"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrParse) {
		t.Error("errors.Is should match ErrParse")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped error")
	}

	shape := &ParseError{Action: "query", Path: "query.backlinks", Message: "missing or not an array"}
	if shape.Error() != "wiki query response at query.backlinks: missing or not an array" {
		t.Errorf("Error() = %q", shape.Error())
	}

	var target *ParseError
	if !errors.As(error(shape), &target) || target.Path != "query.backlinks" {
		t.Error("errors.As should extract *ParseError")
	}
}
