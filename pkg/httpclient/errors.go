package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError describes a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// ClientError reports whether the remote rejected the request itself.
func (e *StatusError) ClientError() bool {
	return IsClientError(e.StatusCode)
}

// CheckResponse returns nil for 2xx responses. Otherwise it consumes and closes
// the body and returns a *StatusError carrying at most 512 bytes of it.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return readStatusError(resp)
}

func readStatusError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	drain(resp.Body)

	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.Redacted()
	}
	return &StatusError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
