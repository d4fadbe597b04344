// Package jobctx carries the current job identity through a context so
// outbound catalog calls can attach job_id/client_id headers without
// threading them through every signature.
package jobctx

import "context"

type contextKey int

const (
	jobIDKey contextKey = iota
	clientIDKey
)

// WithJob attaches the job identity to a context
func WithJob(ctx context.Context, jobID, clientID string) context.Context {
	ctx = context.WithValue(ctx, jobIDKey, jobID)
	return context.WithValue(ctx, clientIDKey, clientID)
}

// JobID returns the job id carried by the context, empty when absent
func JobID(ctx context.Context) string {
	if v, ok := ctx.Value(jobIDKey).(string); ok {
		return v
	}
	return ""
}

// ClientID returns the client id carried by the context
func ClientID(ctx context.Context) string {
	if v, ok := ctx.Value(clientIDKey).(string); ok {
		return v
	}
	return ""
}
