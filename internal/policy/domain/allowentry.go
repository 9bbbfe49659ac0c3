package domain

import (
	"fmt"
	"strings"

	"github.com/haukened/rr-policy/internal/policy/common/utils"
)

// AllowEntryKind defines how an allow-list entry matches addresses.
//
// address - matches one address by full case-insensitive equality
// domain  - matches every address whose domain part equals the entry's domain
type AllowEntryKind uint8

const (
	// AllowEntryAddress matches a single address.
	AllowEntryAddress AllowEntryKind = iota
	// AllowEntryDomain matches any address at the domain (entry text "@domain").
	AllowEntryDomain
)

// String returns a stable string representation of the entry kind.
func (k AllowEntryKind) String() string {
	switch k {
	case AllowEntryAddress:
		return "address"
	case AllowEntryDomain:
		return "domain"
	default:
		return fmt.Sprintf("AllowEntryKind(%d)", k)
	}
}

// AllowEntry is one pattern of an allow-list.
// Raw keeps the text exactly as configured; it is what a sender is rewritten to.
type AllowEntry struct {
	Raw  string
	Kind AllowEntryKind
}

// ParseAllowEntry classifies a configured token. A leading '@' marks a domain entry.
func ParseAllowEntry(raw string) AllowEntry {
	if strings.HasPrefix(raw, "@") {
		return AllowEntry{Raw: raw, Kind: AllowEntryDomain}
	}
	return AllowEntry{Raw: raw, Kind: AllowEntryAddress}
}

// Matches reports whether addr satisfies the entry. Domain entries are a suffix
// match anchored at '@', so "@example.com" does not match "a@sub.example.com".
func (e AllowEntry) Matches(addr string) bool {
	addr = utils.CanonicalAddress(addr)
	pattern := utils.CanonicalAddress(e.Raw)
	if e.Kind == AllowEntryDomain {
		return strings.HasSuffix(addr, pattern)
	}
	return addr == pattern
}

// AllowList is the ordered set of entries attached to one network rule.
type AllowList []AllowEntry

// NewAllowList parses tokens in order into an AllowList.
func NewAllowList(tokens ...string) AllowList {
	out := make(AllowList, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, ParseAllowEntry(tok))
	}
	return out
}

// Allows reports whether any entry matches addr. Entries are tried in order and
// the first match wins. An empty list allows nothing.
func (l AllowList) Allows(addr string) bool {
	_, ok := l.Match(addr)
	return ok
}

// Contains reports whether some entry's configured text equals addr exactly.
// Case matters and @domain entries are plain text here, so "@example.com"
// contains only "@example.com".
func (l AllowList) Contains(addr string) bool {
	for _, e := range l {
		if e.Raw == addr {
			return true
		}
	}
	return false
}

// Match returns the first entry matching addr.
func (l AllowList) Match(addr string) (AllowEntry, bool) {
	for _, e := range l {
		if e.Matches(addr) {
			return e, true
		}
	}
	return AllowEntry{}, false
}

// First returns the first configured entry, if any.
func (l AllowList) First() (AllowEntry, bool) {
	if len(l) == 0 {
		return AllowEntry{}, false
	}
	return l[0], true
}
