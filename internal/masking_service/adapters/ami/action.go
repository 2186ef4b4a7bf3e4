package ami

import (
	"bytes"
)

// Action is one AMI request unit: an ordered set of Key: Value fields.
// Field order is preserved on the wire; Asterisk requires Action first.
type Action struct {
	fields []field
}

type field struct {
	Key   string
	Value string
}

// NewAction creates an Action with the given Action header value,
// e.g. NewAction("SIPpeers") or NewAction("Command").
func NewAction(name string) *Action {
	return &Action{fields: []field{{Key: "Action", Value: name}}}
}

// Set appends a field. Calling Set twice with the same key sends the
// header twice; AMI treats repeated headers as a list.
func (a *Action) Set(key, value string) *Action {
	a.fields = append(a.fields, field{Key: key, Value: value})
	return a
}

// Name returns the Action header value, or "" for an empty action.
func (a *Action) Name() string {
	for _, f := range a.fields {
		if f.Key == "Action" {
			return f.Value
		}
	}
	return ""
}

// serialize renders the action as CRLF-separated Key: Value lines with the
// given correlation id appended and a blank line terminating the request.
func (a *Action) serialize(actionID string) []byte {
	var buf bytes.Buffer
	for _, f := range a.fields {
		buf.WriteString(f.Key)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("ActionID: ")
	buf.WriteString(actionID)
	buf.WriteString("\r\n\r\n")
	return buf.Bytes()
}
