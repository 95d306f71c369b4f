package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// PendingTransaction is a submitted mutation awaiting confirmation.
type PendingTransaction struct {
	Hash common.Hash
	Text string
	Type string
}

// Pending transaction categories.
func ApproveType(b Symbol) string {
	return fmt.Sprintf("approve_%s", b)
}

func BondType(b Symbol) string {
	return fmt.Sprintf("bond_%s", b)
}

func RedeemType(b Symbol, autostake bool) string {
	if autostake {
		return fmt.Sprintf("redeem_bond_%s_autostake", b)
	}
	return fmt.Sprintf("redeem_bond_%s", b)
}

func RedeemAllType(autostake bool) string {
	if autostake {
		return "redeem_all_bonds_autostake"
	}
	return "redeem_all_bonds"
}

// Severity of a user message.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// UserMessage is one entry of the notification log.
type UserMessage struct {
	ID       uuid.UUID
	Severity Severity
	Text     string
	At       time.Time
}

// NewUserMessage stamps a message with a fresh id.
func NewUserMessage(sev Severity, text string) UserMessage {
	return UserMessage{ID: uuid.New(), Severity: sev, Text: text, At: time.Now()}
}

// ActionState is the progress of one lifecycle action.
type ActionState int

const (
	ActionIdle ActionState = iota
	ActionSubmitting
	ActionAwaitingConfirmation
	ActionConfirmed
	ActionFailed
)

func (s ActionState) String() string {
	switch s {
	case ActionIdle:
		return "idle"
	case ActionSubmitting:
		return "submitting"
	case ActionAwaitingConfirmation:
		return "awaiting_confirmation"
	case ActionConfirmed:
		return "confirmed"
	case ActionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s ActionState) CanTransition(next ActionState) bool {
	switch s {
	case ActionIdle:
		return next == ActionSubmitting
	case ActionSubmitting:
		return next == ActionAwaitingConfirmation || next == ActionConfirmed || next == ActionFailed
	case ActionAwaitingConfirmation:
		return next == ActionConfirmed || next == ActionFailed
	case ActionConfirmed, ActionFailed:
		return next == ActionSubmitting
	default:
		return false
	}
}

// Terminal reports whether the action has finished.
func (s ActionState) Terminal() bool {
	return s == ActionConfirmed || s == ActionFailed
}
