// Package replay submits transcripts to a running scoring service, waits for them to
// be scored and collects the stored reports.
package replay

import (
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/types"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// Defaults applied to zero Config fields.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultWorkers      = 4
	DefaultTimeout      = 30 * time.Second
	DefaultWait         = 2 * time.Minute
	DefaultPollInterval = 250 * time.Millisecond
	DefaultReviewLimit  = 10
)

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Wait         time.Duration // How long to wait for all reports
	PollInterval time.Duration // Delay between report polls
	ReviewLimit  int           // Number of review entries to fetch
	Logger       logger.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Workers < 1 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Wait <= 0 {
		out.Wait = DefaultWait
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.ReviewLimit < 1 {
		out.ReviewLimit = DefaultReviewLimit
	}
	if out.Logger == nil {
		out.Logger = logger.Nop()
	}
	return out
}

// callRequest mirrors the POST /calls body.
type callRequest struct {
	CallID     string   `json:"call_id"`
	CallType   string   `json:"call_type,omitempty"`
	Agent      string   `json:"agent,omitempty"`
	Transcript string   `json:"transcript"`
	Chunks     []string `json:"chunks,omitempty"`
}

// ackResponse represents the response from call submission.
type ackResponse struct {
	Status    string `json:"status"`
	CallID    string `json:"call_id"`
	Duplicate bool   `json:"duplicate"`
}

// Result is the fate of one submitted call.
type Result struct {
	CallID  string
	Outcome string
	Record  *model.Record
	Err     error
}

// Summary holds run statistics.
type Summary struct {
	Results   []Result
	Review    []types.ReviewEntry
	Submitted int
	Accepted  int
	Duplicate int
	Failed    int
	Scored    int
	Duration  time.Duration
}
