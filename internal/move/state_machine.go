// Package move implements the Move Engine (C7): cross-SD note moves as a
// persistent, crash-safe state machine. Every transition is written to
// the catalog before the corresponding physical filesystem action is
// trusted, so a crash at any point is recoverable from the persisted
// record alone.
package move

import (
	"fmt"

	"github.com/drewcsillag/notecove-storage/api"
)

// InvalidTransition is the §7 error taxonomy's InvalidTransition{moveId, from, to}.
type InvalidTransition struct {
	MoveID   string
	From, To api.MoveState
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf("move %s: invalid transition %s -> %s", e.MoveID, e.From, e.To)
}

// transitions encodes the state graph from §4.7: each state's permitted
// successors, with rolled_back reachable from any non-terminal state and
// cancelled reachable only from initiated.
var transitions = map[api.MoveState]map[api.MoveState]bool{
	api.MoveInitiated:   {api.MoveCopying: true, api.MoveCancelled: true, api.MoveRolledBack: true},
	api.MoveCopying:     {api.MoveFilesCopied: true, api.MoveRolledBack: true},
	api.MoveFilesCopied: {api.MoveDBUpdated: true, api.MoveRolledBack: true},
	api.MoveDBUpdated:   {api.MoveCleaning: true, api.MoveRolledBack: true},
	api.MoveCleaning:    {api.MoveCompleted: true, api.MoveRolledBack: true},
}

// ValidateTransition reports whether moving from -> to is permitted by the
// state graph. Terminal states accept no further transition.
func ValidateTransition(moveID string, from, to api.MoveState) error {
	if from.Terminal() {
		return &InvalidTransition{MoveID: moveID, From: from, To: to}
	}
	if transitions[from][to] {
		return nil
	}
	return &InvalidTransition{MoveID: moveID, From: from, To: to}
}
