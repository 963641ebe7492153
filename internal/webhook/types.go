package webhook

import "time"

// Defaults for the webhook contract. These match what operators get with an
// empty webhook config section.
const (
	DefaultAuthToken = "secret"
	DefaultPostURL   = "http://localhost:5000/notify"
	DefaultTimeout   = 10 * time.Second
)

// Config controls the offline-message notifier.
//
// AuthToken, PostURL and Confidential form the wire contract with the
// external endpoint and are fixed for the process lifetime; the remaining
// fields shape the async dispatch pool.
type Config struct {
	AuthToken    string
	PostURL      string
	Confidential bool

	Workers   int
	QueueSize int
	// RatePerSec caps outbound POSTs per second. 0 disables the limiter.
	RatePerSec int
	// Timeout bounds one POST (connect + response headers).
	Timeout time.Duration
}

// Stats is a point-in-time snapshot of notifier counters.
//
// Sent counts completed HTTP exchanges regardless of status code; the
// endpoint's response is not part of the contract. Failed counts transport
// errors (refused, timeout, DNS). Neither ever surfaces to the pipeline.
type Stats struct {
	Queued  uint64 `json:"queued"`
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Skipped uint64 `json:"skipped"`
	Dropped uint64 `json:"dropped"`
}
