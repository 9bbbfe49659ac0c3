package rules

import "time"

// CacheStats reports lightweight match cache metrics.
type CacheStats struct {
	Size      int    // current number of entries (0 when caching is disabled)
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// StoreStats reports the size of each loaded collection.
type StoreStats struct {
	DeniedSenders         int
	BlackholeRecipients   int
	SenderRestrictions    int
	RecipientRestrictions int
	LoadedAt              time.Time
	Cache                 CacheStats
}

// Counts returns the collection sizes keyed by source name.
func (s StoreStats) Counts() map[string]int {
	return map[string]int{
		SourceDeniedSenders:         s.DeniedSenders,
		SourceBlackholeRecipients:   s.BlackholeRecipients,
		SourceSenderRestrictions:    s.SenderRestrictions,
		SourceRecipientRestrictions: s.RecipientRestrictions,
	}
}
