package layer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidPacking is returned for lengths that cannot describe a packed batch.
var ErrInvalidPacking = errors.New("invalid packed batch")

// Packed is a batch of variable-length sequences stored time-major. Items are
// sorted longest first, so the items still running at position t are always
// a prefix of the batch: Steps[t] has one row for each of them and padding is
// never stored.
type Packed struct {
	Steps   []*mat.Dense
	Lengths []int
}

// NewPacked allocates zeroed steps of the given width for lengths, which must
// be positive and in descending order.
func NewPacked(lengths []int, width int) (*Packed, error) {
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidPacking)
	}
	for i, l := range lengths {
		if l < 1 {
			return nil, fmt.Errorf("%w: item %d has length %d", ErrInvalidPacking, i, l)
		}
		if i > 0 && l > lengths[i-1] {
			return nil, fmt.Errorf("%w: item %d is longer than item %d", ErrInvalidPacking, i, i-1)
		}
	}

	p := &Packed{
		Steps:   make([]*mat.Dense, lengths[0]),
		Lengths: lengths,
	}
	for t := range p.Steps {
		p.Steps[t] = mat.NewDense(p.Active(t), width, nil)
	}
	return p, nil
}

// BatchSize returns the number of items.
func (p *Packed) BatchSize() int {
	return len(p.Lengths)
}

// Active returns how many items are longer than t.
func (p *Packed) Active(t int) int {
	n := 0
	for n < len(p.Lengths) && p.Lengths[n] > t {
		n++
	}
	return n
}

// Width returns the number of columns of every step.
func (p *Packed) Width() int {
	_, c := p.Steps[0].Dims()
	return c
}

// check verifies that every step has one row per active item and the same width.
func (p *Packed) check(width int) error {
	if len(p.Steps) == 0 || len(p.Lengths) == 0 || len(p.Steps) != p.Lengths[0] {
		return fmt.Errorf("%w: %d steps for longest length %v", ErrInvalidPacking, len(p.Steps), p.Lengths)
	}
	for t, s := range p.Steps {
		r, c := s.Dims()
		if r != p.Active(t) || c != width {
			return fmt.Errorf("%w: step %d is %dx%d, want %dx%d", ErrInvalidPacking, t, r, c, p.Active(t), width)
		}
	}
	return nil
}

// columns returns a packed copy of columns [lo, hi) of every step.
func (p *Packed) columns(lo, hi int) *Packed {
	out := &Packed{Steps: make([]*mat.Dense, len(p.Steps)), Lengths: p.Lengths}
	for t, s := range p.Steps {
		r, _ := s.Dims()
		out.Steps[t] = mat.DenseCopyOf(s.Slice(0, r, lo, hi))
	}
	return out
}

// add accumulates q into p step by step.
func (p *Packed) add(q *Packed) {
	for t, s := range p.Steps {
		s.Add(s, q.Steps[t])
	}
}

// concatPacked joins the steps of parts column-wise.
func concatPacked(parts []*Packed) *Packed {
	if len(parts) == 1 {
		return parts[0]
	}
	first := parts[0]
	width := 0
	for _, part := range parts {
		width += part.Width()
	}

	out := &Packed{Steps: make([]*mat.Dense, len(first.Steps)), Lengths: first.Lengths}
	for t := range out.Steps {
		r, _ := first.Steps[t].Dims()
		step := mat.NewDense(r, width, nil)
		col := 0
		for _, part := range parts {
			c := part.Width()
			step.Slice(0, r, col, col+c).(*mat.Dense).Copy(part.Steps[t])
			col += c
		}
		out.Steps[t] = step
	}
	return out
}
