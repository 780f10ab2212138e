package histogram

// Bucket is a quantized range of values together with the count of
// observations that fell into it.
type Bucket struct {
	count uint64
	lo    uint64
	hi    uint64
}

// Count returns the number of observations in the bucket.
func (b Bucket) Count() uint64 { return b.count }

// Start returns the inclusive lower bound of the bucket's range.
func (b Bucket) Start() uint64 { return b.lo }

// End returns the inclusive upper bound of the bucket's range.
func (b Bucket) End() uint64 { return b.hi }
