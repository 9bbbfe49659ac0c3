package domain

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"192.168.1.0/24", "192.168.1.0/24", false},
		{"10.0.0.5/24", "10.0.0.0/24", false},
		{" 10.0.0.0/8 ", "10.0.0.0/8", false},
		{"0.0.0.0/0", "0.0.0.0/0", false},
		{"192.0.2.7", "192.0.2.7/32", false},
		{"2001:db8::1/32", "2001:db8::/32", false},
		{"2001:db8::1", "2001:db8::1/128", false},
		{"10.0.0.0/255.0.0.0", "10.0.0.0/8", false},
		{"192.168.1.0/0.0.0.255", "192.168.1.0/24", false},
		{"192.168.1.77/255.255.255.0", "192.168.1.0/24", false},
		{"10.0.0.0/0.255.255.255", "10.0.0.0/8", false},
		{"192.0.2.7/255.255.255.255", "192.0.2.7/32", false},
		{"192.0.2.7/0.0.0.0", "0.0.0.0/0", false},
		{"10.0.0.0/08", "10.0.0.0/8", false},
		{"10.0.0.0/255.0.255.0", "", true},
		{"10.0.0.0/255.0.0", "", true},
		{"2001:db8::/255.255.0.0", "", true},
		{"10.0.0.0/", "", true},
		{"10.0.0.0/-8", "", true},
		{"10.0.0.0/8/8", "", true},
		{"2001:db8::/129", "", true},
		{"10.0.0.0/33", "", true},
		{"not-a-network", "", true},
		{"300.1.1.1/8", "", true},
		{"fe80::1%eth0", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNetwork(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, netip.MustParsePrefix(tt.want), got)
		})
	}
}

func TestNewNetworkRule(t *testing.T) {
	r, err := NewNetworkRule("10.1.2.3/16", []string{"a@x.org", "@y.org"}, "sender_restrictions", 4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParsePrefix("10.1.0.0/16"), r.Network)
	assert.Equal(t, NewAllowList("a@x.org", "@y.org"), r.AllowList)
	assert.Equal(t, "sender_restrictions", r.Source)
	assert.Equal(t, 4, r.Line)

	_, err = NewNetworkRule("bogus", []string{"a@x.org"}, "s", 1)
	assert.Error(t, err)
}

func mustRule(t *testing.T, network string, allow ...string) NetworkRule {
	t.Helper()
	r, err := NewNetworkRule(network, allow, "test", 0)
	require.NoError(t, err)
	return r
}

func TestRuleTable_FirstMatchWins(t *testing.T) {
	table := RuleTable{
		mustRule(t, "10.0.0.0/8", "wide@example.com"),
		mustRule(t, "10.1.0.0/16", "narrow@example.com"),
	}

	// file order beats prefix length
	list, found := table.Lookup("10.1.2.3")
	require.True(t, found)
	assert.Equal(t, "wide@example.com", list[0].Raw)
	assert.Equal(t, 0, table.Index("10.1.2.3"))
}

func TestRuleTable_Lookup(t *testing.T) {
	table := RuleTable{
		mustRule(t, "192.168.1.0/24", "allowed@example.com"),
		{Network: netip.MustParsePrefix("172.16.0.0/12")},
		mustRule(t, "2001:db8::/32", "@example.com"),
	}

	tests := []struct {
		name      string
		client    string
		wantFound bool
		wantLen   int
	}{
		{"ipv4 match", "192.168.1.5", true, 1},
		{"empty list is configured", "172.16.9.9", true, 0},
		{"ipv6 match", "2001:db8::25", true, 1},
		{"no rule", "8.8.8.8", false, 0},
		{"unparsable", "mail.example.com", false, 0},
		{"empty", "", false, 0},
		{"mapped v4 is not v4", "::ffff:192.168.1.5", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, found := table.Lookup(tt.client)
			assert.Equal(t, tt.wantFound, found)
			assert.Len(t, list, tt.wantLen)
			if tt.wantFound {
				assert.NotNil(t, list)
			} else {
				assert.Nil(t, list)
			}
		})
	}
}

func TestRuleTable_NoImplicitDefault(t *testing.T) {
	var table RuleTable
	_, found := table.Lookup("10.0.0.1")
	assert.False(t, found)

	table = RuleTable{mustRule(t, "0.0.0.0/0", "catch@all.org")}
	_, found = table.Lookup("10.0.0.1")
	assert.True(t, found)
}

func TestRuleTable_At(t *testing.T) {
	table := RuleTable{mustRule(t, "10.0.0.0/8", "a@b.c")}
	_, ok := table.At(-1)
	assert.False(t, ok)
	_, ok = table.At(1)
	assert.False(t, ok)
	list, ok := table.At(0)
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", list[0].Raw)
}
