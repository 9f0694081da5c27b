package survey

// error_messages.go maps technical errors to user-facing messages with codes
// that can be quoted to support.
//
//	MODE001 - Unknown mode: the mode is not "asis" or "tobe"
//	PAIR001 - Unknown pair: the statement pair is not in the questionnaire
//	SIDE001 - Unknown side: the side is not "left" or "right"
//	REQ001  - Invalid request: the body could not be decoded
//	REQ002  - Invalid field: a request field failed validation
//	RATE001 - Rate limited: too many requests
//	ERR000  - Unknown error: fallback when nothing matches
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "unknown mode",
		msg: UserMessage{
			Message: "Unknown questionnaire mode",
			Action:  `Use "asis" for the current state or "tobe" for the target state`,
			Code:    "MODE001",
		},
	},
	{
		pattern: "unknown statement pair",
		msg: UserMessage{
			Message: "Statement pair not found",
			Action:  "Reload the questionnaire and try again",
			Code:    "PAIR001",
		},
	},
	{
		pattern: "unknown side",
		msg: UserMessage{
			Message: "Unknown statement side",
			Action:  `Use "left" or "right"`,
			Code:    "SIDE001",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid field",
		msg: UserMessage{
			Message: "A request field is invalid",
			Action:  "Check the submitted values",
			Code:    "REQ002",
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

var defaultUserMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return defaultUserMessage
}

// FormatUserError renders an error for display as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultUserMessage.Code
}
