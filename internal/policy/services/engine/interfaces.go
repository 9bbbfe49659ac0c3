package engine

import "github.com/haukened/rr-policy/internal/policy/domain"

// RuleSource is the read-only view of the rule store the engine consults.
// rules.Store implements it.
type RuleSource interface {
	IsBlackholed(recipient string) bool
	IsDenied(sender string) bool
	SenderAllowList(clientAddr string) (domain.AllowList, bool)
	RecipientAllowList(clientAddr string) (domain.AllowList, bool)
}
