package guard

import "context"

// Gatekeeper is the top level interface the route layer talks to.
type Gatekeeper interface {
	// Evaluate decides on a request without performing the allow-path side effects.
	Evaluate(ctx context.Context, req HTTPRequest) Decision

	// Protect decides on a request and then performs the side effects belonging to the decision.
	Protect(ctx context.Context, req HTTPRequest) Decision
}

// Administrator exposes the operator actions.
type Administrator interface {
	// Whitelist and Blacklist return the normalized source identifier they were applied to.
	Whitelist(ctx context.Context, sourceID string) (string, error)
	Blacklist(ctx context.Context, sourceID string) (string, error)
	ClearCache()
	Reputation(ctx context.Context, sourceID string) (ReputationRecord, error)
	RecentAttacks(ctx context.Context, sourceID string) ([]RecentAttack, error)
}
