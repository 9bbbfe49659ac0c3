package rules

// BloomFilter is the minimal interface the address sets need from a Bloom filter.
// A negative answer is definitive; a positive one is confirmed against the set.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds filters sized for a capacity and target false-positive rate.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// MatchCache memoises which rule of a table a client address matched.
// Values are rule indexes, -1 meaning no rule. Implementations must be safe for
// concurrent use because one Store serves every session of a process.
type MatchCache interface {
	Get(key string) (int, bool)
	Put(key string, index int)
	Len() int
	Stats() (hits, misses, evictions uint64)
}
