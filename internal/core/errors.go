package core

// Error codes, grouped by category. Users quote the code when asking
// for help; support staff can map it back to the matching pattern here.
//
//	CFG001 - Missing parameter bindings (configure templates first)
//	CFG002 - Invalid or incomplete CSV column mapping
//	CFG003 - Unknown or invalid setting
//
//	FILE001 - Unsupported file type (netlist XML or CSV expected)
//	FILE002 - Malformed netlist XML
//	FILE003 - Malformed CSV
//	FILE004 - File too large
//	FILE005 - Empty file
//
//	IMP001 - No file uploaded
//	IMP002 - An import is already running for this user
//	IMP003 - Too many imports in progress
//	IMP004 - Import cancelled
//	IMP005 - Import not found
//
//	DB001 - Database unreachable
//	DB002 - Constraint violation / duplicate
//	DB003 - Operation timed out
//	DB004 - Deadlock
//
//	VAL001 - Invalid id
//	VAL002 - Invalid URL
//
//	RATE001 - Too many requests
//	ERR000  - Fallback for anything unmatched
//
// Patterns are matched case-insensitively with strings.Contains; the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is the user-facing form of an error: what happened, what
// to do about it, and a stable code for support reference.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Configuration (CFG001-CFG003)
	{
		pattern: "missing parameter bindings",
		msg: UserMessage{
			Message: "Reference, footprint and symbol parameters are not configured",
			Action:  "Bind the three templates in the plugin settings before importing",
			Code:    "CFG001",
		},
	},
	{
		pattern: "csv mapping",
		msg: UserMessage{
			Message: "The CSV column mapping is invalid",
			Action:  "Map the id column and at least one of reference, footprint or symbol",
			Code:    "CFG002",
		},
	},
	{
		pattern: "unknown setting",
		msg: UserMessage{
			Message: "The setting does not exist",
			Action:  "Check the setting key against the settings list",
			Code:    "CFG003",
		},
	},
	{
		pattern: "invalid setting",
		msg: UserMessage{
			Message: "The setting value is not allowed",
			Action:  "Check the allowed values for this setting",
			Code:    "CFG003",
		},
	},

	// Files (FILE001-FILE005)
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "The file is neither a netlist XML nor a CSV",
			Action:  "Export the design as a KiCad netlist or a CSV file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "malformed netlist",
		msg: UserMessage{
			Message: "The netlist XML could not be parsed",
			Action:  "Re-export the netlist from KiCad and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The CSV file could not be parsed",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the upload size limit",
			Action:  "Split the export into smaller files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the upload size limit",
			Action:  "Split the export into smaller files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a netlist or CSV with component rows",
			Code:    "FILE005",
		},
	},

	// Imports (IMP001-IMP005)
	{
		pattern: "no file uploaded",
		msg: UserMessage{
			Message: "No file was uploaded",
			Action:  "Attach the exported file to the upload",
			Code:    "IMP001",
		},
	},
	{
		pattern: "import already running",
		msg: UserMessage{
			Message: "An import is already running for this user",
			Action:  "Wait for the current import to finish",
			Code:    "IMP002",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "The system is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "import cancelled",
		msg: UserMessage{
			Message: "The import was cancelled",
			Action:  "Start a new import when ready",
			Code:    "IMP004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "IMP004",
		},
	},
	{
		pattern: "import not found",
		msg: UserMessage{
			Message: "The import does not exist or has expired",
			Action:  "Start a new import",
			Code:    "IMP005",
		},
	},

	// Database (DB001-DB004)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "The database is unreachable",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "The record conflicts with an existing one",
			Action:  "Check for an existing entry with the same value",
			Code:    "DB002",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "The record conflicts with an existing one",
			Action:  "Check for an existing entry with the same value",
			Code:    "DB002",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "The record conflicts with an existing one",
			Action:  "Check for an existing entry with the same value",
			Code:    "DB002",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},

	// Validation (VAL001-VAL002)
	{
		pattern: "invalid id",
		msg: UserMessage{
			Message: "The id is not valid",
			Action:  "Check the id and try again",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid url",
		msg: UserMessage{
			Message: "The URL is not valid",
			Action:  "Use an absolute http or https URL",
			Code:    "VAL002",
		},
	},

	// Lookups (RES001). Must stay below "import not found" so import
	// lookups keep their own code.
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "The requested item does not exist",
			Action:  "Check the id and try again",
			Code:    "RES001",
		},
	},

	// Rate limiting (RATE001)
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is the ERR000 fallback. Check the server logs for the
// technical error when a user reports this code.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to its user-facing message. The
// first matching pattern wins; unmatched errors map to ERR000.
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

// FormatUserError renders an error for display as
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether the error matches a known pattern and is
// safe to show as-is, rather than falling back to the ERR000 message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logs, with the message
// shown to the user.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err with its mapped user message. Returns nil for
// a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
