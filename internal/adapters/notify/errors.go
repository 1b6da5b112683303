package notify

import "errors"

// ErrSendFailed wraps transport-level delivery failures.
var ErrSendFailed = errors.New("notification send failed")
