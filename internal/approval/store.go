package approval

import "context"

// Store persists rules, requests and their decision ledgers. Flow strategies
// run each decision's mutations inside one Transact call so a failure leaves
// no partial flow or request state visible.
type Store interface {
	GetRule(ctx context.Context, activityType string) (*Rule, error)
	SaveRule(ctx context.Context, r *Rule) error

	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id uint) (*Request, error)
	SaveRequest(ctx context.Context, req *Request) error
	ListRequests(ctx context.Context, status Status, page, size int) ([]*Request, int64, error)

	AppendFlow(ctx context.Context, f *Flow) error
	Flows(ctx context.Context, requestID uint) ([]Flow, error)
	ApprovedFlows(ctx context.Context, requestID uint) ([]Flow, error)
	CountApproved(ctx context.Context, requestID uint) (int64, error)

	Transact(ctx context.Context, fn func(Store) error) error
}
