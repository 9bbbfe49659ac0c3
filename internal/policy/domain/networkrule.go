package domain

import (
	"encoding/binary"
	"fmt"
	mathbits "math/bits"
	"net/netip"
	"strconv"
	"strings"
)

// NetworkRule binds an allow-list to the clients inside one network.
//
// Notes:
// - Network is always masked (host bits cleared).
// - Source and Line identify where the rule was read from, for diagnostics only.
type NetworkRule struct {
	Network   netip.Prefix
	AllowList AllowList
	Source    string
	Line      int
}

// ParseNetwork parses a network token non-strictly: host bits are permitted and
// cleared ("10.0.0.5/24" is 10.0.0.0/24), and a bare address is a single-host network.
// IPv4 networks may also give a netmask ("10.0.0.0/255.0.0.0") or a hostmask
// ("10.0.0.0/0.255.255.255") after the slash.
func ParseNetwork(token string) (netip.Prefix, error) {
	token = strings.TrimSpace(token)
	addrPart, suffix, hasSuffix := strings.Cut(token, "/")

	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network %q: %w", token, err)
	}
	if addr.Zone() != "" {
		return netip.Prefix{}, fmt.Errorf("invalid network %q: zoned address", token)
	}
	if !hasSuffix {
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	bits, err := prefixBits(addr, suffix)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network %q: %w", token, err)
	}
	return netip.PrefixFrom(addr, bits).Masked(), nil
}

// prefixBits reads the part after the slash: a decimal prefix length, or for
// IPv4 a dotted netmask or hostmask.
func prefixBits(addr netip.Addr, suffix string) (int, error) {
	if suffix != "" && strings.Trim(suffix, "0123456789") == "" {
		n, err := strconv.Atoi(suffix)
		if err != nil || n > addr.BitLen() {
			return 0, fmt.Errorf("prefix length %q out of range", suffix)
		}
		return n, nil
	}
	if !addr.Is4() || !strings.Contains(suffix, ".") {
		return 0, fmt.Errorf("bad prefix %q", suffix)
	}
	mask, err := netip.ParseAddr(suffix)
	if err != nil || !mask.Is4() {
		return 0, fmt.Errorf("bad netmask %q", suffix)
	}
	m := mask.As4()
	v := binary.BigEndian.Uint32(m[:])
	if n, ok := leadingOnes(v); ok {
		return n, nil
	}
	if n, ok := leadingOnes(^v); ok {
		return n, nil
	}
	return 0, fmt.Errorf("netmask %q is not contiguous", suffix)
}

// leadingOnes returns the number of leading one bits of v when all remaining
// bits are zero.
func leadingOnes(v uint32) (int, bool) {
	n := mathbits.LeadingZeros32(^v)
	if n < 32 && v<<n != 0 {
		return 0, false
	}
	return n, true
}

// NewNetworkRule builds a rule from a network token and its allow-list tokens.
func NewNetworkRule(network string, allow []string, source string, line int) (NetworkRule, error) {
	p, err := ParseNetwork(network)
	if err != nil {
		return NetworkRule{}, err
	}
	return NetworkRule{
		Network:   p,
		AllowList: NewAllowList(allow...),
		Source:    source,
		Line:      line,
	}, nil
}

// Contains reports whether the rule's network contains addr.
func (r NetworkRule) Contains(addr netip.Addr) bool {
	return r.Network.Contains(addr)
}

// RuleTable is an ordered list of network rules. Order is file order and is
// significant: the first containing rule wins, not the longest prefix.
type RuleTable []NetworkRule

// Index returns the position of the first rule containing clientAddr, or -1
// when clientAddr does not parse or no rule contains it.
func (t RuleTable) Index(clientAddr string) int {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientAddr))
	if err != nil {
		return -1
	}
	for i, r := range t {
		if r.Contains(addr) {
			return i
		}
	}
	return -1
}

// Lookup returns the allow-list of the first rule containing clientAddr.
// found is false when no rule applies, which is distinct from a rule whose
// allow-list is empty (found is true, list allows nothing).
func (t RuleTable) Lookup(clientAddr string) (list AllowList, found bool) {
	return t.At(t.Index(clientAddr))
}

// At returns the allow-list of the rule at index i; a negative or out of range
// index reports not found.
func (t RuleTable) At(i int) (AllowList, bool) {
	if i < 0 || i >= len(t) {
		return nil, false
	}
	list := t[i].AllowList
	if list == nil {
		list = AllowList{}
	}
	return list, true
}
