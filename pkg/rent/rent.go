// Package rent computes rent-exempt balances with the default cluster
// parameters.
package rent

const (
	// DefaultLamportsPerByteYear is the default rent rate.
	DefaultLamportsPerByteYear uint64 = 3480

	// DefaultExemptionThreshold is the number of years of rent an account
	// must hold to be exempt.
	DefaultExemptionThreshold uint64 = 2

	// AccountStorageOverhead is charged on top of the data length.
	AccountStorageOverhead uint64 = 128
)

// Rent holds the parameters used to compute minimum balances.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// Default returns the cluster default parameters.
func Default() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance returns the lamports an account of dataLen bytes needs to be
// rent exempt.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	return (AccountStorageOverhead + dataLen) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether lamports cover the minimum balance for dataLen.
func (r Rent) IsExempt(lamports, dataLen uint64) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// MinimumBalance uses the default parameters.
func MinimumBalance(dataLen uint64) uint64 {
	return Default().MinimumBalance(dataLen)
}
