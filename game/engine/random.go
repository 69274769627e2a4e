package engine

import (
	"math/rand/v2"
	"time"
)

// RandomSource supplies the randomness used when spawning tiles.
// Next yields a uniform value in [0,1); NextIndex yields a uniform int in [0,n).
type RandomSource interface {
	Next() float64
	NextIndex(n int) int
}

type pcgSource struct {
	r *rand.Rand
}

// NewRandomSource returns a seeded source; equal seeds produce equal games
func NewRandomSource(seed int64) RandomSource {
	return &pcgSource{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// NewTimeSource returns a source seeded from the wall clock
func NewTimeSource() RandomSource {
	return NewRandomSource(time.Now().UnixNano())
}

func (s *pcgSource) Next() float64 {
	return s.r.Float64()
}

func (s *pcgSource) NextIndex(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// SequenceSource replays scripted draws and indices, cycling when exhausted.
// An empty script yields 0 for every call.
type SequenceSource struct {
	Draws   []float64
	Indices []int
	draw    int
	index   int
}

// NewSequenceSource creates a scripted source
func NewSequenceSource(draws []float64, indices []int) *SequenceSource {
	return &SequenceSource{Draws: draws, Indices: indices}
}

func (s *SequenceSource) Next() float64 {
	if len(s.Draws) == 0 {
		return 0
	}
	v := s.Draws[s.draw%len(s.Draws)]
	s.draw++
	return v
}

func (s *SequenceSource) NextIndex(n int) int {
	if len(s.Indices) == 0 || n <= 0 {
		return 0
	}
	v := s.Indices[s.index%len(s.Indices)]
	s.index++
	if v < 0 {
		v = -v
	}
	return v % n
}
