package at

import (
	"strconv"
	"strings"
)

// Action is the parsed form of a "+HTTPACTION: <method>,<code>,<len>" result.
type Action struct {
	// Method is the verb code echoed back by the modem.
	Method Method
	// StatusCode is the HTTP status code of the completed action.
	StatusCode int
	// Length is the number of response body bytes available to read.
	Length int
}

// ParseAction extracts the method, status code and body length from an
// HTTPACTION result line.
//
// Parsing is deliberately tolerant: a line that does not carry the
// "+HTTPACTION:" prefix, has fewer than three comma-separated fields, or has
// non-integer fields yields ok == false so the caller can keep scanning.
// A stray corrupted line must never abort an otherwise successful wait.
func ParseAction(line string) (action Action, ok bool) {
	rest, found := strings.CutPrefix(line, UrcHTTPAction)
	if !found {
		return Action{}, false
	}

	fields := strings.Split(rest, ",")
	if len(fields) < 3 {
		return Action{}, false
	}

	method, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Action{}, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Action{}, false
	}
	length, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || length < 0 {
		return Action{}, false
	}

	return Action{Method: Method(method), StatusCode: code, Length: length}, true
}
