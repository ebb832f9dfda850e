package fault

import "net/http"

// FromStatus classifies an upstream HTTP error status. Callers pass a
// short body excerpt for the diagnostic; success statuses yield nil.
func FromStatus(op string, status int, body string) error {
	if status < 400 {
		return nil
	}

	kind := KindUpstreamTransient
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindUpstreamAuth
	case status == http.StatusTooManyRequests:
		kind = KindUpstreamRateLimited
	case status < 500:
		// A 400 or 404 means the request itself was wrong; only 5xx
		// responses are worth repeating.
		kind = KindUpstreamRejected
	}

	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return New(kind, op, "status %d", status)
	}
	return New(kind, op, "status %d: %s", status, body)
}
