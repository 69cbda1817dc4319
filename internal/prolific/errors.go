package prolific

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/emilianohg/studycost/internal/apperr"
)

// APIError describes a failed call. Err is one of the apperr sentinels.
type APIError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

func kindForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return apperr.ErrAuth
	case code == http.StatusNotFound:
		return apperr.ErrNotFound
	case code == http.StatusTooManyRequests:
		return apperr.ErrRateLimit
	case code >= 500:
		return apperr.ErrTransient
	default:
		return apperr.ErrUpstream
	}
}

type errorBody struct {
	Error struct {
		Title  string `json:"title"`
		Detail any    `json:"detail"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// errorDetail pulls a readable message out of an error response body.
func errorDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch d := eb.Error.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if eb.Error.Title != "" {
			return eb.Error.Title
		}
		if eb.Detail != "" {
			return eb.Detail
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
