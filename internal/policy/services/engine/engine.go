// Package engine turns one policy request into one decision.
package engine

import (
	"errors"
	"fmt"

	"github.com/haukened/rr-policy/internal/policy/domain"
)

// ErrNoRewriteTarget is returned when a sender restriction applies but its
// allow-list is empty, leaving nothing to rewrite the sender to.
var ErrNoRewriteTarget = errors.New("sender restriction has an empty allow-list")

// Decide evaluates req against rules. The first applicable step wins:
//
//  1. blackholed recipient   -> DISCARD
//  2. denied sender          -> REJECT
//  3. sender restriction     -> REPLACE sender with the first allow-list entry
//  4. recipient restriction  -> REJECT
//  5. otherwise              -> OK
//
// Steps 3 and 4 apply to policy-check requests only, and only when a rule
// matches the client address. The sender must appear in its list verbatim;
// only the recipient check understands @domain entries and ignores case.
// Decide has no side effects.
func Decide(req domain.Request, rules RuleSource) (domain.Decision, error) {
	sender := req.Sender()
	recipient := req.Recipient()

	if recipient != "" && rules.IsBlackholed(recipient) {
		return domain.Discard(), nil
	}
	if sender != "" && rules.IsDenied(sender) {
		return domain.Reject(domain.ReasonSenderDenied), nil
	}
	if !req.IsPolicyCheck() {
		return domain.Allow(), nil
	}

	if sender != "" {
		if list, found := rules.SenderAllowList(req.ClientAddress()); found && !list.Contains(sender) {
			// The entry is used verbatim, even when it is an @domain pattern.
			first, ok := list.First()
			if !ok {
				return domain.Decision{}, fmt.Errorf("client %q: %w", req.ClientAddress(), ErrNoRewriteTarget)
			}
			return domain.RewriteSender(first.Raw), nil
		}
	}

	if recipient != "" {
		if list, found := rules.RecipientAllowList(req.ClientAddress()); found && !list.Allows(recipient) {
			return domain.Reject(domain.ReasonRecipientForbidden), nil
		}
	}

	return domain.Allow(), nil
}

// Engine binds Decide to one rule source so sessions can hold a single value.
type Engine struct {
	rules RuleSource
}

// New returns an Engine deciding against rules.
func New(rules RuleSource) *Engine {
	return &Engine{rules: rules}
}

// Decide evaluates req; see the package-level Decide.
func (e *Engine) Decide(req domain.Request) (domain.Decision, error) {
	return Decide(req, e.rules)
}
