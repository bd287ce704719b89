// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/scoring"
)

// MaxCallIDLength bounds call IDs accepted from clients.
const MaxCallIDLength = 128

// Validation errors.
var (
	ErrMissingCallID = errors.New("call_id is required")
	ErrCallIDTooLong = fmt.Errorf("call_id exceeds %d characters", MaxCallIDLength)
	ErrInvalidCallID = errors.New("call_id must not contain whitespace or control characters")
	ErrNotUTF8       = errors.New("transcript is not valid UTF-8")
)

// Call is a transcript submitted for scoring. Chunks follow Transcript in order.
type Call struct {
	CallID      string
	CallType    string
	Agent       string
	Transcript  string
	Chunks      []string
	SubmittedAt time.Time
}

// Validate checks the call before it is queued. An empty transcript is valid and
// scores zero everywhere.
func (c Call) Validate() error {
	switch {
	case c.CallID == "":
		return ErrMissingCallID
	case utf8.RuneCountInString(c.CallID) > MaxCallIDLength:
		return ErrCallIDTooLong
	case strings.ContainsFunc(c.CallID, func(r rune) bool { return r <= ' ' || r == 0x7f }):
		return ErrInvalidCallID
	}
	if !utf8.ValidString(c.Transcript) {
		return ErrNotUTF8
	}
	for _, chunk := range c.Chunks {
		if !utf8.ValidString(chunk) {
			return ErrNotUTF8
		}
	}
	return nil
}

// Request converts the call into a scoring request.
func (c Call) Request() scoring.Request {
	return scoring.Request{
		CallID:     c.CallID,
		CallType:   c.CallType,
		Transcript: c.Transcript,
		Chunks:     append([]string(nil), c.Chunks...),
	}
}

// Record is a scored call as kept by the report store.
type Record struct {
	CallID   string          `json:"call_id"`
	CallType string          `json:"call_type,omitempty"`
	Agent    string          `json:"agent,omitempty"`
	ScoredAt time.Time       `json:"scored_at"`
	Report   report.QAReport `json:"report"`
}

// NewRecord pairs a call with its report.
func NewRecord(c Call, r report.QAReport, scoredAt time.Time) Record {
	return Record{
		CallID:   c.CallID,
		CallType: c.CallType,
		Agent:    c.Agent,
		ScoredAt: scoredAt.UTC(),
		Report:   r,
	}
}
