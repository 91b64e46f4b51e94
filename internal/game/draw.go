package game

import rand "math/rand/v2"

// DrawWinners selects n distinct winners from pool, uniformly at random,
// by taking the head of a Fisher-Yates permutation. The pool is not
// modified. If n exceeds the pool size every candidate wins.
func DrawWinners(rng *rand.Rand, pool []int64, n int) []int64 {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return []int64{}
	}

	perm := make([]int, len(pool))
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}

	winners := make([]int64, n)
	for i := range winners {
		winners[i] = pool[perm[i]]
	}
	return winners
}
