package httpserver

import (
	"edgeguard/guard"
	"edgeguard/ipaddresses"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type headerPair struct {
	key   string
	value string
}

func (h *headerPair) Key() string   { return h.key }
func (h *headerPair) Value() string { return h.value }

// fiberRequest is a copy of the parts of a fiber request the gatekeeper looks at.
// It stays valid after the handler returns.
type fiberRequest struct {
	method        string
	uri           string
	remoteAddr    string
	headers       []guard.HeaderPair
	transactionID string
}

func (r *fiberRequest) Method() string              { return r.method }
func (r *fiberRequest) URI() string                 { return r.uri }
func (r *fiberRequest) RemoteAddr() string          { return r.remoteAddr }
func (r *fiberRequest) Headers() []guard.HeaderPair { return r.headers }
func (r *fiberRequest) TransactionID() string       { return r.transactionID }

func newFiberRequest(c *fiber.Ctx, trustedProxies []string) *fiberRequest {
	r := &fiberRequest{
		method: string(c.Request().Header.Method()),
		uri:    string(c.Request().RequestURI()),
	}

	c.Request().Header.VisitAll(func(k, v []byte) {
		r.headers = append(r.headers, &headerPair{key: string(k), value: string(v)})
	})

	r.remoteAddr = ipaddresses.ClientAddress(
		c.Context().RemoteAddr().String(),
		string(c.Request().Header.Peek(fiber.HeaderXForwardedFor)),
		string(c.Request().Header.Peek("X-Real-IP")),
		trustedProxies,
	)

	r.transactionID = string(c.Request().Header.Peek(fiber.HeaderXRequestID))
	if r.transactionID == "" {
		r.transactionID = uuid.NewString()
	}

	return r
}
