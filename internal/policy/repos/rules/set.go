package rules

import "github.com/haukened/rr-policy/internal/policy/common/utils"

// AddressSet is an immutable set of canonical email addresses with an optional
// Bloom prefilter in front of the map.
type AddressSet struct {
	members map[string]struct{}
	filter  BloomFilter
}

// NewAddressSet builds a set from addrs. When factory is nil no prefilter is used.
func NewAddressSet(addrs []string, factory BloomFactory, fpRate float64) *AddressSet {
	s := &AddressSet{members: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		a = utils.CanonicalAddress(a)
		if a == "" {
			continue
		}
		s.members[a] = struct{}{}
	}
	if factory != nil && len(s.members) > 0 {
		s.filter = factory.New(uint64(len(s.members)), fpRate)
		for a := range s.members {
			s.filter.Add([]byte(a))
		}
	}
	return s
}

// Contains reports case-insensitive membership. The empty address is never a member.
func (s *AddressSet) Contains(addr string) bool {
	if s == nil || len(s.members) == 0 {
		return false
	}
	addr = utils.CanonicalAddress(addr)
	if addr == "" {
		return false
	}
	if s.filter != nil && !s.filter.MightContain([]byte(addr)) {
		return false
	}
	_, ok := s.members[addr]
	return ok
}

// Len returns the number of members.
func (s *AddressSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}
