package alerts

import (
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/database"
	"github.com/pipewatch/pipewatch/internal/metrics"
)

// Clock supplies the current time. Injectable so cooldown and transition
// timestamps are testable.
type Clock func() time.Time

// Publisher receives alerts as they fire, e.g. the websocket broadcaster
type Publisher interface {
	PublishAlert(alert *database.Alert)
}

// CustomPredicate decides whether a custom-type rule matches. It receives
// the rule (with its opaque condition document) and the evaluation context.
type CustomPredicate func(rule *database.AlertRule, ctx EvalContext) bool

// Engine evaluates alert rules and drives the alert lifecycle. Firing is
// serialized per rule so concurrent evaluations of the same rule cannot
// both pass the cooldown gate.
type Engine struct {
	db        *gorm.DB
	recorder  *Recorder
	clock     Clock
	publisher Publisher
	custom    CustomPredicate

	mu        sync.Mutex
	ruleLocks map[uint]*sync.Mutex
}

// NewEngine creates an engine over the given database handle
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:        db,
		recorder:  NewRecorder(db),
		clock:     time.Now,
		ruleLocks: make(map[uint]*sync.Mutex),
	}
}

// SetClock replaces the engine's time source
func (e *Engine) SetClock(clock Clock) {
	e.clock = clock
}

// SetPublisher wires a destination for newly fired alerts
func (e *Engine) SetPublisher(p Publisher) {
	e.publisher = p
}

// SetCustomPredicate installs the matcher for custom-type rules
func (e *Engine) SetCustomPredicate(p CustomPredicate) {
	e.custom = p
}

// Recorder returns the engine's history recorder
func (e *Engine) Recorder() *Recorder {
	return e.recorder
}

func (e *Engine) lockRule(ruleID uint) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.ruleLocks[ruleID]
	if !ok {
		l = &sync.Mutex{}
		e.ruleLocks[ruleID] = l
	}
	return l
}

// EvaluateAndMaybeFire runs one rule against an observed context. It
// returns the fired alert, or nil when the rule is inactive, the conditions
// do not match, or the cooldown suppresses firing. Suppressed evaluations
// are silent: no alert row, no history row.
func (e *Engine) EvaluateAndMaybeFire(rule *database.AlertRule, ctx EvalContext, sourceType string, sourceID *uint) (*database.Alert, error) {
	if !rule.IsActive {
		return nil, nil
	}

	cond, err := ParseConditions(rule.RuleType, rule.Conditions)
	if err != nil {
		return nil, err
	}

	matched := false
	if rule.RuleType == database.RuleTypeCustom && e.custom != nil {
		matched = e.custom(rule, ctx)
	} else {
		matched = Evaluate(cond, ctx)
	}
	metrics.RuleEvaluations.WithLabelValues(string(rule.RuleType)).Inc()
	if !matched {
		return nil, nil
	}

	lock := e.lockRule(rule.ID)
	lock.Lock()
	defer lock.Unlock()

	now := e.clock()

	lastFired, err := e.lastFiredAt(rule.ID)
	if err != nil {
		return nil, err
	}
	if !MayFire(rule.CooldownMinutes, lastFired, now) {
		metrics.AlertsSuppressed.WithLabelValues(string(rule.RuleType)).Inc()
		return nil, nil
	}

	message := rule.Description
	if message == "" {
		message = "Alert rule " + rule.Name + " triggered"
	}

	alert := &database.Alert{
		AlertRuleID:    rule.ID,
		Title:          "Alert: " + rule.Name,
		Message:        message,
		Severity:       rule.Severity,
		Status:         database.AlertStatusActive,
		Context:        ctx.Snapshot(),
		SourceType:     sourceType,
		SourceID:       sourceID,
		OrganizationID: rule.OrganizationID,
		PipelineID:     rule.PipelineID,
		CreatedAt:      now,
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alert).Error; err != nil {
			return err
		}
		return appendHistory(tx, &database.AlertHistory{
			AlertID:     alert.ID,
			Action:      ActionCreated,
			Description: "alert created from rule " + rule.Name,
			CreatedBy:   "system",
			Success:     true,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, wrapPersistence("create alert", err)
	}

	metrics.AlertsFired.WithLabelValues(string(rule.RuleType), string(rule.Severity)).Inc()
	log.Printf("Alert fired: rule=%s severity=%s alert_id=%d", rule.Name, rule.Severity, alert.ID)

	if e.publisher != nil {
		e.publisher.PublishAlert(alert)
	}

	return alert, nil
}

// lastFiredAt returns the creation time of the rule's most recent alert,
// or nil when the rule has never fired. Backed by the
// (alert_rule_id, created_at) index, not a table scan.
func (e *Engine) lastFiredAt(ruleID uint) (*time.Time, error) {
	var last database.Alert
	err := e.db.Select("created_at").
		Where("alert_rule_id = ?", ruleID).
		Order("created_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("load last alert", err)
	}
	return &last.CreatedAt, nil
}

// AcknowledgeAlert applies the acknowledge transition to an alert within
// the given organization. Alert and history are persisted in one
// transaction; a failed transition changes nothing.
func (e *Engine) AcknowledgeAlert(orgID, alertID uint, actor string) (*database.Alert, error) {
	return e.transition(orgID, alertID, actor, ActionAcknowledged, Acknowledge)
}

// ResolveAlert applies the resolve transition to an alert within the given
// organization.
func (e *Engine) ResolveAlert(orgID, alertID uint, actor string) (*database.Alert, error) {
	return e.transition(orgID, alertID, actor, ActionResolved, Resolve)
}

func (e *Engine) transition(orgID, alertID uint, actor, action string, apply func(*database.Alert, string, time.Time) error) (*database.Alert, error) {
	var alert database.Alert
	err := e.db.Where("id = ? AND organization_id = ?", alertID, orgID).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("alert", alertID)
	}
	if err != nil {
		return nil, wrapPersistence("load alert", err)
	}

	now := e.clock()
	if err := apply(&alert, actor, now); err != nil {
		return nil, err
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&alert).Error; err != nil {
			return err
		}
		return appendHistory(tx, &database.AlertHistory{
			AlertID:     alert.ID,
			Action:      action,
			Description: "alert " + action + " by " + actor,
			CreatedBy:   actor,
			Success:     true,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, wrapPersistence(action+" alert", err)
	}

	metrics.AlertTransitions.WithLabelValues(action).Inc()
	return &alert, nil
}
