/*
Package protocol implements the line oriented text protocol spoken by the autocomplete server.

Every request is a single newline terminated line:

	get <prefix>

The verb is case-insensitive and is followed by exactly one space and a prefix of 1 to 15
Latin letters. Parse is the only place prefixes are validated; everything downstream
trusts the Command it returns.

Responses are one or more newline terminated lines. Matches are written one per line
behind an arrow marker:

	-> apply
	-> app
	-> apple

Failures are reported as a single line (see the *Message constants). A fixed Banner is
written once when a connection opens.
*/
package protocol

import (
	"regexp"
	"strings"
)

const (
	MinPrefixLen = 1
	MaxPrefixLen = 15

	// Marker precedes every suggested word on the wire.
	Marker = "-> "

	Banner = "This is autocomplete service.\n" +
		"Service accepts commands, which\n" +
		"matches 'get <prefix>' pattern"

	ParseErrorMessage = "Command should match pattern 'get <prefix:str>'"
	NotFoundMessage   = "Suggestions not found"
	RetryMessage      = "Something gone wrong, please try again"
	BusyMessage       = "Server busy, please try again later"
)

var commandPattern = regexp.MustCompile(`^(?i:get) ([A-Za-z]{1,15})$`)

// Command is a parsed client request.
type Command interface {
	isCommand()
}

// GetSuggestions asks for the completions of Prefix.
type GetSuggestions struct {
	Prefix string
}

func (GetSuggestions) isCommand() {}

// ParseError is returned by Parse for any line that is not a valid command.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return ParseErrorMessage
}

// Parse validates a raw input line. Surrounding whitespace, including the line
// terminator, is ignored. The prefix keeps the case it was typed in.
func Parse(raw string) (Command, error) {
	line := strings.TrimSpace(raw)
	m := commandPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, &ParseError{Input: line}
	}
	return GetSuggestions{Prefix: m[1]}, nil
}

// FormatSuggestions renders words as marker prefixed lines, without a trailing newline.
func FormatSuggestions(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Marker)
		b.WriteString(w)
	}
	return b.String()
}

// Terminate appends a newline unless msg already ends with one.
func Terminate(msg string) string {
	if strings.HasSuffix(msg, "\n") {
		return msg
	}
	return msg + "\n"
}
