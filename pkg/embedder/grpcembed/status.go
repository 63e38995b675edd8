package grpcembed

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isRetryableStatus reports whether a gRPC error reflects a transient
// condition (rate limiting, timeout, transport unavailability) as opposed
// to a terminal one (bad request, auth failure).
func isRetryableStatus(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return true // non-status errors (connection reset, etc.) are transient
	}
	switch st.Code() {
	case codes.ResourceExhausted, codes.DeadlineExceeded, codes.Unavailable, codes.Aborted:
		return true
	default:
		return false
	}
}
