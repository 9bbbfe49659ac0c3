package bloom

import bitsbloom "github.com/bits-and-blooms/bloom/v3"

// filter adapts a bits-and-blooms BloomFilter to rules.BloomFilter.
// Filters are filled once while a Store is built and only read afterwards,
// so no locking is needed.
type filter struct {
	bf *bitsbloom.BloomFilter
}

func (f *filter) Add(key []byte) {
	f.bf.Add(key)
}

func (f *filter) MightContain(key []byte) bool {
	return f.bf.Test(key)
}
