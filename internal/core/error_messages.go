// Package core provides the validation and business-rule engine.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Header Errors (HDR001-HDR099)
//
// Errors raised while editing sheet headers:
//
//	HDR001 - Header not found: The column to change does not exist
//	         Action: Re-run validation; the sheet may already be fixed
//	         Patterns: "header not found"
//
//	HDR002 - Column exists: A column with that name is already present
//	         Action: Remove or rename the existing column first
//	         Patterns: "column already exists"
//
// # Fix Errors (FIX001-FIX099)
//
// Errors raised while applying a fix:
//
//	FIX001 - Unparsable suggestion: The suggested fix could not be understood
//	         Action: Use the form: Rename "Old" to "New"
//	         Patterns: "unparsable suggestion"
//
//	FIX002 - Row missing: The row referenced by the issue no longer exists
//	         Action: Re-run validation and fix the new issue list
//	         Patterns: "row out of range"
//
// # Rule Errors (RULE001-RULE099)
//
//	RULE001 - Invalid rule: A business rule could not be read
//	          Action: Check the rule type and that it only sets fields of that type
//	          Patterns: "invalid rule"
//
// # Engine Errors (ENG001-ENG099)
//
// Errors in the validator configuration or request lifecycle:
//
//	ENG001 - Dependency cycle: Validators depend on each other in a loop
//	         Action: Remove one of the dependencies named in the error
//	         Patterns: "circular validator dependency"
//
//	ENG002 - Unknown dependency: A validator depends on one that does not exist
//	         Action: Register the missing validator or drop the dependency
//	         Patterns: "unknown validator dependency"
//
//	ENG003 - Validator not found: No validator is registered under that name
//	         Action: List validators to see the available names
//	         Patterns: "validator not found"
//
//	ENG004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	ENG005 - Request timeout: Request timed out
//	         Action: Try a smaller workbook or try again later
//	         Patterns: "context deadline exceeded"
//
//	ENG006 - Invalid request: The request body could not be read
//	         Action: Send the sheets as JSON objects with headers and rows
//	         Patterns: "invalid request"
//
// # File Errors (FILE001-FILE099)
//
// Errors related to loading workbooks:
//
//	FILE001 - File too large: Workbook exceeds the maximum size limit
//	          Action: Split the workbook or remove unused sheets
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported file: Only .xlsx and .csv files are accepted
//	          Action: Save the workbook as .xlsx or export each sheet as CSV
//	          Patterns: "unsupported file type"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save file as UTF-8 encoding
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a workbook to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Sheet missing: The workbook lacks a clients, workers or tasks sheet
//	          Action: Name the sheets clients, workers and tasks
//	          Patterns: "sheet not found"
//
//	FILE006 - Empty file: The uploaded file is empty
//	          Action: Please upload a file with a header row
//	          Patterns: "empty file"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: The workbook session does not exist
//	         Action: The session may have expired. Please upload again
//	         Patterns: "session not found"
//
//	SES002 - Store unavailable: Unable to connect to the session store
//	         Action: Please try again in a few moments
//	         Patterns: "connection refused"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
//	RATE002 - System busy: Too many validations in progress
//	          Action: Please wait a moment and try again
//	          Patterns: "too many concurrent validations"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned by session stores for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// Header Errors (HDR001-HDR002)
	// =========================================================================
	{
		pattern: "header not found",
		msg: UserMessage{
			Message: "The column to change does not exist",
			Action:  "Re-run validation; the sheet may already be fixed",
			Code:    "HDR001",
		},
	},
	{
		pattern: "column already exists",
		msg: UserMessage{
			Message: "A column with that name is already present",
			Action:  "Remove or rename the existing column first",
			Code:    "HDR002",
		},
	},

	// =========================================================================
	// Fix Errors (FIX001-FIX002)
	// =========================================================================
	{
		pattern: "unparsable suggestion",
		msg: UserMessage{
			Message: "The suggested fix could not be understood",
			Action:  `Use the form: Rename "Old" to "New"`,
			Code:    "FIX001",
		},
	},
	{
		pattern: "row out of range",
		msg: UserMessage{
			Message: "The row referenced by the issue no longer exists",
			Action:  "Re-run validation and fix the new issue list",
			Code:    "FIX002",
		},
	},

	// =========================================================================
	// Rule Errors (RULE001)
	// =========================================================================
	{
		pattern: "invalid rule",
		msg: UserMessage{
			Message: "A business rule could not be read",
			Action:  "Check the rule type and that it only sets fields of that type",
			Code:    "RULE001",
		},
	},

	// =========================================================================
	// Engine Errors (ENG001-ENG006)
	// =========================================================================
	{
		pattern: "circular validator dependency",
		msg: UserMessage{
			Message: "Validators depend on each other in a loop",
			Action:  "Remove one of the dependencies named in the error",
			Code:    "ENG001",
		},
	},
	{
		pattern: "unknown validator dependency",
		msg: UserMessage{
			Message: "A validator depends on one that does not exist",
			Action:  "Register the missing validator or drop the dependency",
			Code:    "ENG002",
		},
	},
	{
		pattern: "validator not found",
		msg: UserMessage{
			Message: "No validator is registered under that name",
			Action:  "List validators to see the available names",
			Code:    "ENG003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "ENG004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller workbook or try again later",
			Code:    "ENG005",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request body could not be read",
			Action:  "Send clients, workers and tasks as JSON objects with headers and rows",
			Code:    "ENG006",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Workbook exceeds the maximum size limit",
			Action:  "Split the workbook or remove unused sheets",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Workbook exceeds the maximum size limit",
			Action:  "Split the workbook or remove unused sheets",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xlsx and .csv files are accepted",
			Action:  "Save the workbook as .xlsx or export each sheet as CSV",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a workbook to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "sheet not found",
		msg: UserMessage{
			Message: "The workbook lacks a clients, workers or tasks sheet",
			Action:  "Name the sheets clients, workers and tasks",
			Code:    "FILE005",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "The workbook session does not exist",
			Action:  "The session may have expired. Please upload again",
			Code:    "SES001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the session store",
			Action:  "Please try again in a few moments",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001-RATE002)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "too many concurrent validations",
		msg: UserMessage{
			Message: "Too many validations in progress",
			Action:  "Please wait a moment and try again",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
