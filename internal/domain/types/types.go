// Package types contains read shapes shared by the service and its adapters.
package types

import (
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/report"
)

// ReviewEntry is one row of the QA review list, lowest scores first.
type ReviewEntry struct {
	Rank                 int         `json:"rank"`
	CallID               string      `json:"call_id"`
	CallType             string      `json:"call_type,omitempty"`
	Agent                string      `json:"agent,omitempty"`
	OverallRuleScore     float64     `json:"overall_rule_score"`
	OverallSemanticScore float64     `json:"overall_semantic_score"`
	RuleBand             report.Band `json:"rule_band"`
	Degraded             bool        `json:"degraded"`
	ScoredAt             time.Time   `json:"scored_at"`
}

// Stats summarises the service state.
type Stats struct {
	ReportsStored  int64   `json:"reports_stored"`
	QueueLength    int     `json:"queue_length"`
	QueueCapacity  int     `json:"queue_capacity"`
	Workers        int     `json:"workers"`
	DedupeSize     int64   `json:"dedupe_size"`
	BreakerState   string  `json:"breaker_state"`
	Provider       string  `json:"similarity_provider"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	Categories     int     `json:"categories"`
	KeywordPhrases int     `json:"keyword_phrases"`
}

// AgentFilter narrows an agent summary. Zero fields match every agent or year.
type AgentFilter struct {
	Agent string
	Year  int
}

// AgentSummary aggregates one agent's scored calls for one calendar month, in UTC.
// Averages are rounded to two decimals; RuleBand is the band of the average rule score.
type AgentSummary struct {
	Agent            string      `json:"agent"`
	Year             int         `json:"year"`
	Month            int         `json:"month"`
	Calls            int         `json:"calls"`
	AvgRuleScore     float64     `json:"avg_rule_score"`
	AvgSemanticScore float64     `json:"avg_semantic_score"`
	DegradedCalls    int         `json:"degraded_calls"`
	RuleBand         report.Band `json:"rule_band"`
}
