// Package filter implements the Low-pass Filter Bank (spec.md §4.2,
// Component B): one single-pole IIR filter per channel. The Jog Core keeps
// one bank with a channel per joint and uses it to smooth the joint
// positions after each per-tick delta has been applied.
package filter

import "github.com/pkg/errors"

// Filter is a single-pole low-pass filter with unity DC gain:
//
//	y[n] = a*y[n-1] + (1-a)*x[n]
//
// Grounded on go.viam.com/rdk/control's IIR filter block shape.
type Filter struct {
	a    float64
	y    float64
	init bool
}

// New constructs a Filter with pole a in [0, 1). a == 0 disables smoothing
// (output tracks input exactly); values approaching 1 increase smoothing.
func New(a float64) (*Filter, error) {
	if a < 0 || a >= 1 {
		return nil, errors.Errorf("filter: pole %f out of range [0, 1)", a)
	}
	return &Filter{a: a}, nil
}

// Reset seeds the filter's internal state to x, so the next Next call does
// not produce a transient jump (spec P4).
func (f *Filter) Reset(x float64) {
	f.y = x
	f.init = true
}

// Next advances the filter by one sample and returns the filtered output.
// The first call after construction (with no prior Reset) behaves as an
// implicit Reset, since there is no meaningful prior state to blend from.
func (f *Filter) Next(x float64) float64 {
	if !f.init {
		f.Reset(x)
		return f.y
	}
	f.y = f.a*f.y + (1-f.a)*x
	return f.y
}

// Value returns the filter's current output without advancing it.
func (f *Filter) Value() float64 {
	return f.y
}

// Bank is a fixed-size set of independent Filters, one per named channel,
// sharing a single pole.
type Bank struct {
	names   []string
	filters []*Filter
}

// NewBank constructs a Bank with one filter per name, all using pole a.
func NewBank(names []string, a float64) (*Bank, error) {
	filters := make([]*Filter, len(names))
	for i := range names {
		f, err := New(a)
		if err != nil {
			return nil, err
		}
		filters[i] = f
	}
	return &Bank{names: append([]string(nil), names...), filters: filters}, nil
}

// Reset re-seeds every filter in the bank from values, indexed the same way
// as the names passed to NewBank.
func (b *Bank) Reset(values []float64) error {
	if len(values) != len(b.filters) {
		return errors.Errorf("filter: got %d values, want %d", len(values), len(b.filters))
	}
	for i, v := range values {
		b.filters[i].Reset(v)
	}
	return nil
}

// Next advances every filter in the bank by one sample, returning the
// filtered outputs in the same order.
func (b *Bank) Next(values []float64) ([]float64, error) {
	if len(values) != len(b.filters) {
		return nil, errors.Errorf("filter: got %d values, want %d", len(values), len(b.filters))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = b.filters[i].Next(v)
	}
	return out, nil
}

// Len returns the number of channels in the bank.
func (b *Bank) Len() int {
	return len(b.filters)
}
