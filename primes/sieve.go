package primes

import "math/big"

// sieveLimit bounds the small primes used to pre-filter candidates. It must
// stay below 2^(MinBits-3), the smallest possible candidate half.
const sieveLimit = 2000

// sieveGroup is a set of small primes whose product fits in a uint64, so a
// candidate needs one big-integer reduction per group.
type sieveGroup struct {
	product *big.Int
	primes  []uint64
}

var sieveGroups = buildSieveGroups(sieveLimit)

func buildSieveGroups(limit int) []sieveGroup {
	composite := make([]bool, limit+1)
	var small []uint64
	for i := 3; i <= limit; i += 2 {
		if composite[i] {
			continue
		}
		small = append(small, uint64(i))
		for j := i * i; j <= limit; j += 2 * i {
			composite[j] = true
		}
	}

	var groups []sieveGroup
	var cur []uint64
	prod := uint64(1)
	for _, s := range small {
		if prod > ^uint64(0)/s {
			groups = append(groups, sieveGroup{product: new(big.Int).SetUint64(prod), primes: cur})
			cur, prod = nil, 1
		}
		cur = append(cur, s)
		prod *= s
	}
	if len(cur) > 0 {
		groups = append(groups, sieveGroup{product: new(big.Int).SetUint64(prod), primes: cur})
	}
	return groups
}

// passesSieve reports whether neither half nor 2*half+1 has a small odd
// prime factor. half must be larger than sieveLimit.
func passesSieve(half *big.Int) bool {
	m := new(big.Int)
	for _, g := range sieveGroups {
		r := m.Mod(half, g.product).Uint64()
		for _, s := range g.primes {
			h := r % s
			if h == 0 || (2*h+1)%s == 0 {
				return false
			}
		}
	}
	return true
}
