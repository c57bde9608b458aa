package protocol

// Allocation limits to prevent DoS attacks via malicious length prefixes.
const (
	// DefaultMaxAllocation is the default maximum size of one string table
	// record (4MB).
	DefaultMaxAllocation = 4 * 1024 * 1024

	// HardMaxAllocation is the absolute ceiling for a record or a whole
	// string table (16MB). Even if configured higher, limits are capped here.
	HardMaxAllocation = 16 * 1024 * 1024

	// MaxCollectionCount is the default maximum number of patches in a batch.
	MaxCollectionCount = 100_000
)

// Limits bounds what DecodeBatchWithLimits accepts.
type Limits struct {
	// MaxAllocation is the largest string table record.
	MaxAllocation int

	// MaxPatches is the largest patch count.
	MaxPatches int
}

// DefaultLimits returns the default decoding limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAllocation: DefaultMaxAllocation,
		MaxPatches:    MaxCollectionCount,
	}
}

// normalize fills zero fields with defaults and applies the hard ceiling.
func (l Limits) normalize() Limits {
	if l.MaxAllocation <= 0 {
		l.MaxAllocation = DefaultMaxAllocation
	}
	if l.MaxAllocation > HardMaxAllocation {
		l.MaxAllocation = HardMaxAllocation
	}
	if l.MaxPatches <= 0 {
		l.MaxPatches = MaxCollectionCount
	}
	return l
}
