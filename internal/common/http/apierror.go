package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	// Message comes from the body's message, error or errors field. It is
	// empty when the body carried none of them.
	Message string
	// FieldErrors holds per-field messages when the body provides them.
	FieldErrors map[string]string
	// Text is the trimmed raw body when it was not JSON.
	Text string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Text
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, msg)
}

// MessageOr returns the server supplied message or fallback.
func (e *APIError) MessageOr(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

type fieldMessage struct {
	Field   string `json:"field"`
	Path    string `json:"path"`
	Param   string `json:"param"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

// ParseErrorBody extracts what it can from an error response. Recognised
// shapes: {"message": "..."}, {"error": "..."}, {"errors": "..."},
// {"errors": [{"field": "...", "message": "..."}]}, {"errors": ["..."]} and
// {"errors": {"field": "message"}}.
func ParseErrorBody(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return apiErr
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		apiErr.Text = string(trimmed)
		return apiErr
	}

	if raw, ok := payload["errors"]; ok {
		apiErr.FieldErrors, apiErr.Message = parseErrorsField(raw)
	}

	for _, key := range []string{"message", "error"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			apiErr.Message = s
			break
		}
	}

	return apiErr
}

func parseErrorsField(raw json.RawMessage) (map[string]string, string) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return nil, s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		fields := make(map[string]string)
		var msgs []string
		for _, item := range list {
			var text string
			if err := json.Unmarshal(item, &text); err == nil {
				if text != "" {
					msgs = append(msgs, text)
				}
				continue
			}
			var fm fieldMessage
			if err := json.Unmarshal(item, &fm); err != nil {
				continue
			}
			field := firstNonEmpty(fm.Field, fm.Path, fm.Param)
			msg := firstNonEmpty(fm.Message, fm.Msg)
			if msg == "" {
				continue
			}
			if field != "" {
				if _, exists := fields[field]; !exists {
					fields[field] = msg
				}
			}
			msgs = append(msgs, msg)
		}
		if len(fields) == 0 {
			fields = nil
		}
		return fields, strings.Join(msgs, "; ")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			switch tv := v.(type) {
			case string:
				fields[k] = tv
			case []interface{}:
				if len(tv) > 0 {
					fields[k] = fmt.Sprint(tv[0])
				}
			case map[string]interface{}:
				if m, ok := tv["message"].(string); ok {
					fields[k] = m
				}
			}
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, fields[k])
		}
		if len(fields) == 0 {
			fields = nil
		}
		return fields, strings.Join(msgs, "; ")
	}

	return nil, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
