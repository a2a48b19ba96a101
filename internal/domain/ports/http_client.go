package ports

import "net/http"

// HTTPClient abstracts the outbound HTTP client for gateway calls.
// Allows injecting a mock in unit tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
