package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// UserAgent identifies us to the PSE reports API, which asks automated
// consumers to send a descriptive agent string.
const UserAgent = "ksewatch/1.0 (+https://github.com/mpawlak/ksewatch)"

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
