package core

// Error codes reference
//
// Technical errors are translated into short user messages with a code that
// can be quoted in a support request. Codes are grouped by category:
//
//	DATA001 - No data loaded          ("no data loaded")
//
//	FILE001 - File too large          ("file too large")
//	FILE002 - Unreadable spreadsheet  ("xlsx", "parquet")
//	FILE003 - Unreadable text file    ("unable to read file", "invalid csv")
//	FILE004 - No file                 ("no file provided")
//	FILE005 - Empty file              ("empty file")
//	FILE006 - Bad compression         ("gzip", "zstd", "xz reader", "bzip2")
//
//	VAL001  - Unknown column          ("column not found")
//	VAL002  - Malformed request body  ("invalid request body")
//	VAL003  - Bad pagination          ("invalid page")
//	VAL004  - Bad query flag          ("invalid query parameter")
//
//	UPL002  - Busy                    ("too many uploads")
//	UPL004  - Request cancelled       ("context canceled")
//	UPL005  - Request timeout         ("context deadline exceeded")
//
//	DB001   - History unreachable     ("connection refused")
//
//	RATE001 - Rate limited            ("rate limit")
//
//	ERR000  - Anything else; check the server log for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is an error rendered for people rather than logs.
type UserMessage struct {
	Message string `json:"message"` // what happened
	Action  string `json:"action"`  // what to do about it
	Code    string `json:"code"`    // support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "no data loaded",
		msg: UserMessage{
			Message: "No dataset is loaded",
			Action:  "Upload a BIN file or configure DATA_FILES",
			Code:    "DATA001",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Compress the file or remove unused columns",
			Code:    "FILE001",
		},
	},
	{
		pattern: "xlsx",
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Check that the file is a valid .xlsx workbook",
			Code:    "FILE002",
		},
	},
	{
		pattern: "parquet",
		msg: UserMessage{
			Message: "The Parquet file could not be read",
			Action:  "Check that the file is a valid Parquet file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unable to read file",
		msg: UserMessage{
			Message: "The file could not be read with any supported encoding",
			Action:  "Save the file as UTF-8 CSV with a single header row",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has no more fields than the header",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "gzip",
		msg: UserMessage{
			Message: "The compressed file is damaged",
			Action:  "Recompress the file or upload it uncompressed",
			Code:    "FILE006",
		},
	},
	{
		pattern: "zstd",
		msg: UserMessage{
			Message: "The compressed file is damaged",
			Action:  "Recompress the file or upload it uncompressed",
			Code:    "FILE006",
		},
	},
	{
		pattern: "xz reader",
		msg: UserMessage{
			Message: "The compressed file is damaged",
			Action:  "Recompress the file or upload it uncompressed",
			Code:    "FILE006",
		},
	},
	{
		pattern: "bzip2",
		msg: UserMessage{
			Message: "The compressed file is damaged",
			Action:  "Recompress the file or upload it uncompressed",
			Code:    "FILE006",
		},
	},

	// Request validation
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "A requested column does not exist",
			Action:  "Use column names listed by /meta",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body could not be parsed",
			Action:  "Send a JSON object of dimension to column name",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid page",
		msg: UserMessage{
			Message: "Invalid pagination parameters",
			Action:  "Use positive integers for page and page_size",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid query parameter",
		msg: UserMessage{
			Message: "A query parameter has an invalid value",
			Action:  "Use true or false for flags such as dedupe",
			Code:    "VAL004",
		},
	},

	// Upload processing
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "Another upload is being processed",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Load history database is unreachable",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user message. Unknown errors
// map to ERR000.
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

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError carries a technical error together with its user message.
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

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
