package stackdriver

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isRejection reports whether err is a remote rejection or a transient
// backend failure. Such errors are logged and the publish loop continues;
// anything else terminates it.
func isRejection(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument,
		codes.FailedPrecondition,
		codes.OutOfRange,
		codes.NotFound,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.ResourceExhausted,
		codes.Unavailable,
		codes.DeadlineExceeded,
		codes.Aborted,
		codes.Internal:
		return true
	default:
		return false
	}
}
