package runner

import "math/rand/v2"

// splitmix64 is a bijective mixer used to spread derived seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// replicaSeeds returns one seed per replica (index 0 is replica 1).
// A zero base draws fresh random seeds.
func replicaSeeds(base uint64, n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		if base == 0 {
			seeds[i] = rand.Uint64() | 1
			continue
		}
		seeds[i] = splitmix64(base + uint64(i))
	}
	return seeds
}

// stepSeed is the subject seed of one step within a replica.
func stepSeed(replica uint64, step int) uint64 {
	return splitmix64(replica ^ splitmix64(uint64(step)+1))
}
