package services

import (
	"context"
	"errors"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/database"
	"github.com/scriptsentries/clearance-engine/pkg/metrics"
)

// txRunner runs fn against the request's database scope. Production code uses
// database.InTx or database.Detached; tests substitute a pass-through.
type txRunner func(ctx context.Context, fn func(ctx context.Context) error) error

var (
	defaultTx     txRunner = database.InTx
	defaultDetach txRunner = database.Detached
)

// authorize checks a capability for actor and records the decision.
func authorize(m *metrics.Metrics, actor clearance.Actor, capability clearance.Capability) error {
	err := clearance.CheckCapability(actor.Role, capability)
	m.RecordDecision(string(capability), string(actor.Role), decisionOutcome(err))
	return err
}

func decisionOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAllowed
	case errors.Is(err, clearance.ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	default:
		return metrics.OutcomeInvalidStatus
	}
}
