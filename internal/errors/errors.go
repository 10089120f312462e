package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StorageMissing indicates the annotation document does not exist
	StorageMissing ErrorCode = "STORAGE_MISSING"
	// StorageCorrupt indicates the annotation document is not well-formed
	StorageCorrupt ErrorCode = "STORAGE_CORRUPT"
	// InvalidSpaceDefinition indicates a coordinate space violates its invariants
	InvalidSpaceDefinition ErrorCode = "INVALID_SPACE_DEFINITION"
	// InvalidInterpretation indicates an interpretation does not match its variant
	InvalidInterpretation ErrorCode = "INVALID_INTERPRETATION"
	// OracleTransportFailure indicates the inference service could not be reached
	OracleTransportFailure ErrorCode = "ORACLE_TRANSPORT_FAILURE"
	// OracleRejected indicates the inference service answered success=false
	OracleRejected ErrorCode = "ORACLE_REJECTED"
	// NotFound indicates a term or constructor id lookup miss
	NotFound ErrorCode = "NOT_FOUND"
	// Cancelled indicates the user abandoned an interactive flow
	Cancelled ErrorCode = "CANCELLED"
	// DocumentConflict indicates the document changed between load and save
	DocumentConflict ErrorCode = "DOCUMENT_CONFLICT"
	// InvalidArgument indicates a malformed caller-supplied value
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// CheckConfig suggests inspecting configuration
	CheckConfig FixActionType = "check-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// AnnotError represents an error with code, message, and suggestions
type AnnotError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates an AnnotError carrying the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *AnnotError {
	return &AnnotError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *AnnotError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *AnnotError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnnotError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnnotError) WithDetails(details interface{}) *AnnotError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AnnotError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ae *AnnotError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// Is reports whether err's tree holds an AnnotError with the given code.
// Joined errors are searched branch by branch.
func Is(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *AnnotError:
		return e.Code == code || Is(e.cause, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return Is(e.Unwrap(), code)
	}
	return false
}

// IsCancelled reports whether err represents a user cancellation
func IsCancelled(err error) bool {
	return Is(err, Cancelled)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	StorageMissing: {
		{
			Type:        RunCommand,
			Command:     "annot init",
			Safe:        true,
			Description: "Create an empty annotation document for this workspace",
		},
	},
	StorageCorrupt: {
		{
			Type:        RunCommand,
			Command:     "annot backup list",
			Safe:        true,
			Description: "Look for a backup to restore",
		},
	},
	OracleTransportFailure: {
		{
			Type:        CheckConfig,
			Command:     "annot config show",
			Safe:        true,
			Description: "Verify oracle.url and that the Peirce service is running",
		},
	},
	DocumentConflict: {
		{
			Type:        RunCommand,
			Command:     "${retry_command}",
			Safe:        true,
			Description: "Another process saved the document; re-run the command",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
