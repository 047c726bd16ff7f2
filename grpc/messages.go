package grpc

import "edgeguard/guard"

// HeaderPair is one request header on the wire.
type HeaderPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HTTPRequest is the request metadata a proxy forwards for evaluation.
type HTTPRequest struct {
	Method        string       `json:"method"`
	URI           string       `json:"uri"`
	RemoteAddr    string       `json:"remoteAddr"`
	Headers       []HeaderPair `json:"headers"`
	TransactionID string       `json:"transactionId"`
}

// SourceRequest names one source for the admin calls. Overrides send it back carrying the normalized identifier.
type SourceRequest struct {
	SourceID string `json:"sourceId"`
}

// Empty is used where a call has nothing to send or return.
type Empty struct{}

type httpRequestWrapper struct{ msg *HTTPRequest }

func (r *httpRequestWrapper) Method() string        { return r.msg.Method }
func (r *httpRequestWrapper) URI() string           { return r.msg.URI }
func (r *httpRequestWrapper) RemoteAddr() string    { return r.msg.RemoteAddr }
func (r *httpRequestWrapper) TransactionID() string { return r.msg.TransactionID }
func (r *httpRequestWrapper) Headers() []guard.HeaderPair {
	hh := make([]guard.HeaderPair, 0, len(r.msg.Headers))
	for i := range r.msg.Headers {
		hh = append(hh, &headerPairWrapper{msg: &r.msg.Headers[i]})
	}
	return hh
}

type headerPairWrapper struct{ msg *HeaderPair }

func (h *headerPairWrapper) Key() string   { return h.msg.Key }
func (h *headerPairWrapper) Value() string { return h.msg.Value }
