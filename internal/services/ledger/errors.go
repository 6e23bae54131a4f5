package ledger

import (
	"fmt"
	"strings"
)

// RemoteFault is a business-rule rejection by the external ledger
// (HTTP 4xx/5xx other than auth failures). Never retried.
type RemoteFault struct {
	StatusCode int
	Message    string
}

func (e *RemoteFault) Error() string {
	return fmt.Sprintf("remote ledger fault (%d): %s", e.StatusCode, e.Message)
}

// TransientError wraps a transport failure that exhausted the retry
// budget.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient network failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// transient markers observed in transport error messages. Anything
// else propagates on first occurrence.
var transientMarkers = []string{
	"connection reset",
	"econnreset",
	"socket hang up",
	"broken pipe",
	"network",
	"unexpected eof",
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
