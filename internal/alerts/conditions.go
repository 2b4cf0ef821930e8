package alerts

import (
	"bytes"
	"encoding/json"

	"github.com/pipewatch/pipewatch/internal/database"
)

// Comparison operators accepted by health_check conditions
const (
	OpGreater = ">"
	OpLess    = "<"
	OpEqual   = "=="
)

// PipelineFailureConditions match pipeline run outcomes. Absent fields are
// vacuously true; present fields are ANDed.
type PipelineFailureConditions struct {
	// Status must equal the run's status tag, e.g. "failed"
	Status *string `json:"status,omitempty"`
	// FailureCount fires when the observed failure count is >= this value
	FailureCount *int `json:"failure_count,omitempty"`
	// DurationThreshold fires when the run duration in seconds is >= this value
	DurationThreshold *float64 `json:"duration_threshold,omitempty"`
}

// HealthCheckConditions match health check results. Absent fields are
// vacuously true; present fields are ANDed.
type HealthCheckConditions struct {
	// Status must equal the result's status tag, e.g. "critical"
	Status *string `json:"status,omitempty"`
	// MetricThreshold is compared against the observed metric value
	MetricThreshold *float64 `json:"metric_threshold,omitempty"`
	// Operator selects the comparison: ">", "<" or "==". Defaults to ">".
	Operator *string `json:"operator,omitempty"`
}

// Conditions is the typed form of an alert rule's condition document.
// Exactly one of the per-type fields is set, matching the rule type.
type Conditions struct {
	RuleType        database.AlertRuleType
	PipelineFailure *PipelineFailureConditions
	HealthCheck     *HealthCheckConditions
}

// EvalContext carries the observed values a rule is evaluated against.
// Zero values apply for anything the caller does not set.
type EvalContext struct {
	Status          string  `json:"status,omitempty"`
	FailureCount    int     `json:"failure_count,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	MetricValue     float64 `json:"metric_value,omitempty"`
	Extra           database.JSONB `json:"-"`
}

// Snapshot flattens the context into a JSONB document for storage on the
// fired alert.
func (c EvalContext) Snapshot() database.JSONB {
	snap := database.JSONB{}
	for k, v := range c.Extra {
		snap[k] = v
	}
	if c.Status != "" {
		snap["status"] = c.Status
	}
	if c.FailureCount != 0 {
		snap["failure_count"] = c.FailureCount
	}
	if c.DurationSeconds != 0 {
		snap["duration_seconds"] = c.DurationSeconds
	}
	if c.MetricValue != 0 {
		snap["metric_value"] = c.MetricValue
	}
	return snap
}

// ParseConditions validates and decodes a rule's raw condition document
// into its typed form. Unknown keys, wrong value types and unsupported
// operators are ValidationErrors; rules carrying them are rejected at
// create/update time so evaluation never sees them.
func ParseConditions(ruleType database.AlertRuleType, raw database.JSONB) (*Conditions, error) {
	if !database.IsValidAlertRuleType(string(ruleType)) {
		return nil, NewValidationError("rule_type", "unknown rule type %q", ruleType)
	}

	parsed := &Conditions{RuleType: ruleType}
	if raw == nil {
		raw = database.JSONB{}
	}

	switch ruleType {
	case database.RuleTypePipelineFailure:
		var c PipelineFailureConditions
		if err := decodeStrict(raw, &c); err != nil {
			return nil, NewValidationError("conditions", "%v", err)
		}
		if c.Status != nil && !database.IsValidRunStatus(*c.Status) {
			return nil, NewValidationError("conditions.status", "unknown run status %q", *c.Status)
		}
		if c.FailureCount != nil && *c.FailureCount < 0 {
			return nil, NewValidationError("conditions.failure_count", "must not be negative")
		}
		if c.DurationThreshold != nil && *c.DurationThreshold < 0 {
			return nil, NewValidationError("conditions.duration_threshold", "must not be negative")
		}
		parsed.PipelineFailure = &c

	case database.RuleTypeHealthCheck:
		var c HealthCheckConditions
		if err := decodeStrict(raw, &c); err != nil {
			return nil, NewValidationError("conditions", "%v", err)
		}
		if c.Status != nil && !database.IsValidHealthCheckStatus(*c.Status) {
			return nil, NewValidationError("conditions.status", "unknown health status %q", *c.Status)
		}
		if c.Operator != nil {
			switch *c.Operator {
			case OpGreater, OpLess, OpEqual:
			default:
				return nil, NewValidationError("conditions.operator", "unsupported operator %q, must be one of >, <, ==", *c.Operator)
			}
		}
		parsed.HealthCheck = &c

	case database.RuleTypeCustom:
		// Custom rules carry opaque conditions interpreted by the
		// engine's custom predicate.
	}

	return parsed, nil
}

// Evaluate reports whether the conditions match the observed context.
// It is pure: no clock, no storage, no side effects.
func Evaluate(cond *Conditions, ctx EvalContext) bool {
	switch cond.RuleType {
	case database.RuleTypePipelineFailure:
		return evalPipelineFailure(cond.PipelineFailure, ctx)
	case database.RuleTypeHealthCheck:
		return evalHealthCheck(cond.HealthCheck, ctx)
	case database.RuleTypeCustom:
		// Custom rules always match here; the engine's predicate hook
		// decides. Without a hook the rule fires on every evaluation.
		return true
	}
	return false
}

func evalPipelineFailure(c *PipelineFailureConditions, ctx EvalContext) bool {
	if c == nil {
		return true
	}
	if c.Status != nil && ctx.Status != *c.Status {
		return false
	}
	if c.FailureCount != nil && ctx.FailureCount < *c.FailureCount {
		return false
	}
	if c.DurationThreshold != nil && ctx.DurationSeconds < *c.DurationThreshold {
		return false
	}
	return true
}

func evalHealthCheck(c *HealthCheckConditions, ctx EvalContext) bool {
	if c == nil {
		return true
	}
	if c.Status != nil && ctx.Status != *c.Status {
		return false
	}
	if c.MetricThreshold != nil {
		op := OpGreater
		if c.Operator != nil {
			op = *c.Operator
		}
		switch op {
		case OpGreater:
			if !(ctx.MetricValue > *c.MetricThreshold) {
				return false
			}
		case OpLess:
			if !(ctx.MetricValue < *c.MetricThreshold) {
				return false
			}
		case OpEqual:
			if ctx.MetricValue != *c.MetricThreshold {
				return false
			}
		}
	}
	return true
}

// decodeStrict round-trips a JSONB document through the JSON decoder with
// unknown fields disallowed, so typos in condition keys are rejected
// instead of silently ignored.
func decodeStrict(raw database.JSONB, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
