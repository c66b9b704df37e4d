package evo

import (
	"fmt"
	"math/rand"
	"strings"
)

// Candidate is a fixed-length item selection; bit i selects item i.
type Candidate struct {
	Bits []bool
}

func RandomCandidate(rng *rand.Rand, length int) Candidate {
	bits := make([]bool, length)
	for i := range bits {
		bits[i] = rng.Float64() < 0.5
	}
	return Candidate{Bits: bits}
}

func ParseCandidate(s string) (Candidate, error) {
	bits := make([]bool, len(s))
	for i, r := range s {
		switch r {
		case '0':
		case '1':
			bits[i] = true
		default:
			return Candidate{}, fmt.Errorf("invalid bit %q at position %d", r, i)
		}
	}
	return Candidate{Bits: bits}, nil
}

func (c Candidate) Len() int {
	return len(c.Bits)
}

func (c Candidate) Clone() Candidate {
	return Candidate{Bits: append([]bool(nil), c.Bits...)}
}

// Selected returns the indices of the set bits in ascending order.
func (c Candidate) Selected() []int {
	out := make([]int, 0, len(c.Bits))
	for i, bit := range c.Bits {
		if bit {
			out = append(out, i)
		}
	}
	return out
}

func (c Candidate) Equal(other Candidate) bool {
	if len(c.Bits) != len(other.Bits) {
		return false
	}
	for i := range c.Bits {
		if c.Bits[i] != other.Bits[i] {
			return false
		}
	}
	return true
}

func (c Candidate) String() string {
	var b strings.Builder
	b.Grow(len(c.Bits))
	for _, bit := range c.Bits {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func cloneCandidates(in []Candidate) []Candidate {
	out := make([]Candidate, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
