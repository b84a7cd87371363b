package bayesian

import "math/rand"

// countingSource is a seeded math/rand source that counts its draws, so
// that its state is fully described by (seed, draws).
type countingSource struct {
	src   rand.Source64
	seed  int64
	draws uint64
}

func newCountingSource(seed int64) *countingSource {
	return &countingSource{src: rand.NewSource(seed).(rand.Source64), seed: seed}
}

// restoreCountingSource rebuilds the source of a snapshot by replaying draws.
func restoreCountingSource(seed int64, draws uint64) *countingSource {
	s := newCountingSource(seed)
	for s.draws < draws {
		s.Int63()
	}
	return s
}

func (s *countingSource) Int63() int64 {
	s.draws++
	return s.src.Int63()
}

func (s *countingSource) Uint64() uint64 {
	s.draws++
	return s.src.Uint64()
}

func (s *countingSource) Seed(seed int64) {
	s.src.Seed(seed)
	s.seed, s.draws = seed, 0
}
