package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/SubhabrataBarik/TaskMaster/internal/shared"
)

const maxDetailLength = 200

// APIError is a non-2xx response from the API.
//
// It unwraps to one of the shared API sentinels so callers can use [errors.Is].
type APIError struct {
	Kind       error
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v (HTTP %d)", e.Kind, e.StatusCode)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.FieldMessages(), "; "))
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Kind }

// FieldMessages returns "field: message" lines sorted by field name.
func (e *APIError) FieldMessages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			lines = append(lines, k+": "+msg)
		}
	}
	return lines
}

// CheckResponse returns nil for a 2xx response and an [*APIError] otherwise.
func CheckResponse(resp *APIResponse) error {
	if resp.OK() {
		return nil
	}

	apiErr := &APIError{Kind: classify(resp.StatusCode), StatusCode: resp.StatusCode}

	obj, isObject := resp.JSONData.(map[string]any)
	switch {
	case isObject:
		apiErr.Detail, apiErr.Fields = parseErrorBody(obj)
	case resp.IsJSON:
		if list, ok := resp.JSONData.([]any); ok {
			apiErr.Detail = strings.Join(stringsOf(list), "; ")
		}
	default:
		apiErr.Detail = truncate(strings.TrimSpace(string(resp.Body)), maxDetailLength)
	}

	return apiErr
}

func classify(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return shared.ErrAuthRejected
	case status == http.StatusNotFound:
		return shared.ErrNotFound
	case status >= 500:
		return shared.ErrServerError
	default:
		return shared.ErrValidationFailed
	}
}

// parseErrorBody reads the Django REST framework error shape: an optional "detail"
// plus field -> message list pairs.
func parseErrorBody(obj map[string]any) (string, map[string][]string) {
	var detail string
	fields := map[string][]string{}

	for k, v := range obj {
		if k == "detail" {
			if s, ok := v.(string); ok {
				detail = s
				continue
			}
		}
		switch val := v.(type) {
		case string:
			fields[k] = []string{val}
		case []any:
			fields[k] = stringsOf(val)
		case map[string]any:
			raw, _ := json.Marshal(val)
			fields[k] = []string{string(raw)}
		}
	}

	if len(fields) == 0 {
		fields = nil
	}
	return detail, fields
}

func stringsOf(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		raw, _ := json.Marshal(item)
		out = append(out, string(raw))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
