package common

import "context"

// Gateway sends one SMS and reports the provider outcome. A non-nil error
// means the call could not be attempted at all; provider failures are carried
// in the Outcome.
type Gateway interface {
	Send(ctx context.Context, phone, message, requestID string) (Outcome, error)
}
