package grpc

import (
	"context"

	"edgeguard/guard"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a remote gatekeeper service.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient creates a client for target. Extra dial options are appended after the defaults.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Evaluate(ctx context.Context, req *HTTPRequest) (d guard.Decision, err error) {
	err = c.conn.Invoke(ctx, fullMethod("Evaluate"), req, &d)
	return
}

func (c *Client) Protect(ctx context.Context, req *HTTPRequest) (d guard.Decision, err error) {
	err = c.conn.Invoke(ctx, fullMethod("Protect"), req, &d)
	return
}

// Whitelist returns the normalized source identifier the server applied the override to.
func (c *Client) Whitelist(ctx context.Context, sourceID string) (source string, err error) {
	var resp SourceRequest
	err = c.conn.Invoke(ctx, fullMethod("Whitelist"), &SourceRequest{SourceID: sourceID}, &resp)
	source = resp.SourceID
	return
}

// Blacklist returns the normalized source identifier the server applied the override to.
func (c *Client) Blacklist(ctx context.Context, sourceID string) (source string, err error) {
	var resp SourceRequest
	err = c.conn.Invoke(ctx, fullMethod("Blacklist"), &SourceRequest{SourceID: sourceID}, &resp)
	source = resp.SourceID
	return
}

func (c *Client) Reputation(ctx context.Context, sourceID string) (rec guard.ReputationRecord, err error) {
	err = c.conn.Invoke(ctx, fullMethod("Reputation"), &SourceRequest{SourceID: sourceID}, &rec)
	return
}

func (c *Client) ClearCache(ctx context.Context) error {
	return c.conn.Invoke(ctx, fullMethod("ClearCache"), &Empty{}, &Empty{})
}

func (c *Client) Metrics(ctx context.Context) (m guard.LiveMetrics, err error) {
	err = c.conn.Invoke(ctx, fullMethod("Metrics"), &Empty{}, &m)
	return
}
