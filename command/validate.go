package command

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Identifier limits, counted in runes.
const (
	UsernameLimit    = 20
	PasswordLimit    = 20
	ChannelNameLimit = 40
)

// ValidLength reports whether 1 <= len(s) <= limit.
func ValidLength(s string, limit int) bool {
	n := utf8.RuneCountInString(s)
	return n >= 1 && n <= limit
}

// payload is a command body after its schema was accepted. Which fields are
// set depends on the schema.
type payload struct {
	raw    json.RawMessage
	fields map[string]string
	text   string
	list   []string
}

// schema accepts or rejects a raw command body, filling p on success.
type schema func(raw json.RawMessage, p *payload) bool

// jsonObject accepts a JSON object carrying exactly keys, each a string.
func jsonObject(keys ...string) schema {
	return func(raw json.RawMessage, p *payload) bool {
		if firstByte(raw) != '{' {
			return false
		}
		var members map[string]json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil || len(members) != len(keys) {
			return false
		}
		fields := make(map[string]string, len(keys))
		for _, key := range keys {
			value, ok := members[key]
			if !ok {
				return false
			}
			s, ok := asString(value)
			if !ok {
				return false
			}
			fields[key] = s
		}
		p.raw = raw
		p.fields = fields
		return true
	}
}

// jsonString accepts a JSON string.
func jsonString() schema {
	return func(raw json.RawMessage, p *payload) bool {
		s, ok := asString(raw)
		if !ok {
			return false
		}
		p.raw = raw
		p.text = s
		return true
	}
}

// jsonScalar accepts any JSON value that is not an object or array. The value
// itself is ignored.
func jsonScalar() schema {
	return func(raw json.RawMessage, p *payload) bool {
		switch firstByte(raw) {
		case 0, '{', '[':
			return false
		}
		p.raw = raw
		return json.Valid(raw)
	}
}

// jsonStringList accepts a JSON array of strings, possibly empty.
func jsonStringList() schema {
	return func(raw json.RawMessage, p *payload) bool {
		if firstByte(raw) != '[' {
			return false
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return false
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := asString(item)
			if !ok {
				return false
			}
			list = append(list, s)
		}
		p.raw = raw
		p.list = list
		return true
	}
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// asString rejects null, which json.Unmarshal would silently turn into "".
func asString(raw json.RawMessage) (string, bool) {
	if firstByte(raw) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// splitEnvelope returns the single command name of an envelope and its body.
func splitEnvelope(envelope []byte) (string, json.RawMessage, error) {
	if firstByte(envelope) != '{' {
		return "", nil, ErrInvalidPayload
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(envelope, &members); err != nil || len(members) != 1 {
		return "", nil, ErrInvalidPayload
	}
	for name, body := range members {
		return name, body, nil
	}
	return "", nil, ErrInvalidPayload
}
