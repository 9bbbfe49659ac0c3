package domain

import "fmt"

// Action is the verdict of one policy exchange.
type Action uint8

const (
	// ActionAllow lets the transaction continue.
	ActionAllow Action = iota
	// ActionDiscard accepts and silently drops the message.
	ActionDiscard
	// ActionReject refuses the transaction with a reason.
	ActionReject
	// ActionRewriteSender replaces the envelope sender.
	ActionRewriteSender
)

// String returns a stable label, also used as the metrics label value.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionDiscard:
		return "discard"
	case ActionReject:
		return "reject"
	case ActionRewriteSender:
		return "rewrite_sender"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// Reasons sent back with reject decisions.
const (
	ReasonSenderDenied       = "Sender address not allowed"
	ReasonRecipientForbidden = "Access denied - recipient not allowed"
)

// Decision is the outcome of evaluating one request. Pure value type.
// Reason is set only for ActionReject, Address only for ActionRewriteSender.
type Decision struct {
	Action  Action
	Reason  string
	Address string
}

// Allow returns the decision that lets the transaction continue. It is also the
// fail-open answer when evaluation breaks.
func Allow() Decision { return Decision{Action: ActionAllow} }

// Discard returns a silent-drop decision.
func Discard() Decision { return Decision{Action: ActionDiscard} }

// Reject returns a rejection carrying reason.
func Reject(reason string) Decision { return Decision{Action: ActionReject, Reason: reason} }

// RewriteSender returns a decision replacing the envelope sender with addr.
func RewriteSender(addr string) Decision {
	return Decision{Action: ActionRewriteSender, Address: addr}
}

// Response renders the value of the action attribute, e.g. "REJECT <reason>".
func (d Decision) Response() string {
	switch d.Action {
	case ActionDiscard:
		return "DISCARD"
	case ActionReject:
		return "REJECT " + d.Reason
	case ActionRewriteSender:
		return "REPLACE From: <" + d.Address + ">"
	default:
		return "OK"
	}
}
