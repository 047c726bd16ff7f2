package guard

import "strings"

// HeaderPair represents a header line in an HTTP request.
type HeaderPair interface {
	Key() string
	Value() string
}

// HTTPRequest represents an HTTP request to be evaluated by the gatekeeper.
// Implementations are supplied by the transport layer.
type HTTPRequest interface {
	Method() string
	URI() string
	RemoteAddr() string
	Headers() []HeaderPair
	TransactionID() string
}

// HeaderValue returns the value of the first header matching key, case-insensitively.
func HeaderValue(req HTTPRequest, key string) (value string, ok bool) {
	for _, h := range req.Headers() {
		if strings.EqualFold(h.Key(), key) {
			return h.Value(), true
		}
	}
	return
}

// RequestPath returns the URI without its query string.
func RequestPath(req HTTPRequest) string {
	uri := req.URI()
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		return uri[:i]
	}
	return uri
}
