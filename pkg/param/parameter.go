// Package param implements typed processor parameters whose current values
// are written by the audio thread and readable without locks.
package param

import (
	"math"
	"sync/atomic"

	"github.com/perastrom/koto/pkg/rt"
)

// Type enumerates the supported parameter value types.
type Type int

const (
	TypeFloat Type = iota
	TypeInt
	TypeBool
	TypeString
)

// PreProcessor conditions an incoming value before it is stored. The
// default clamps to the parameter range.
type PreProcessor func(float64) float64

// Clamp returns a pre-processor limiting values to [min, max].
func Clamp(min, max float64) PreProcessor {
	return func(v float64) float64 {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
		return v
	}
}

// Parameter holds the metadata and current value of one processor
// parameter. The numeric value is stored as float64 bits in an atomic
// word so the audio thread's DSP code reads it without locking.
type Parameter struct {
	id       rt.ObjectID
	name     string
	label    string
	typ      Type
	min      float64
	max      float64
	def      float64
	pre      PreProcessor
	value    atomic.Uint64
	strValue atomic.Pointer[string]
}

func newParameter(name, label string, typ Type, def, min, max float64) *Parameter {
	p := &Parameter{
		id:    rt.NewID(),
		name:  name,
		label: label,
		typ:   typ,
		min:   min,
		max:   max,
		def:   def,
		pre:   Clamp(min, max),
	}
	p.value.Store(math.Float64bits(def))
	return p
}

// NewFloat creates a float parameter.
func NewFloat(name, label string, def, min, max float64) *Parameter {
	return newParameter(name, label, TypeFloat, def, min, max)
}

// NewInt creates an integer parameter.
func NewInt(name, label string, def, min, max int) *Parameter {
	return newParameter(name, label, TypeInt, float64(def), float64(min), float64(max))
}

// NewBool creates a boolean parameter.
func NewBool(name, label string, def bool) *Parameter {
	d := 0.0
	if def {
		d = 1.0
	}
	return newParameter(name, label, TypeBool, d, 0, 1)
}

// NewString creates a string parameter.
func NewString(name, label, def string) *Parameter {
	p := newParameter(name, label, TypeString, 0, 0, 0)
	p.strValue.Store(&def)
	return p
}

// ID returns the parameter's ObjectID.
func (p *Parameter) ID() rt.ObjectID { return p.id }

// Name returns the machine name.
func (p *Parameter) Name() string { return p.name }

// Label returns the display label.
func (p *Parameter) Label() string { return p.label }

// Type returns the value type.
func (p *Parameter) Type() Type { return p.typ }

// Min returns the lower range bound.
func (p *Parameter) Min() float64 { return p.min }

// Max returns the upper range bound.
func (p *Parameter) Max() float64 { return p.max }

// Default returns the default value.
func (p *Parameter) Default() float64 { return p.def }

// SetPreProcessor replaces the value conditioner.
func (p *Parameter) SetPreProcessor(pre PreProcessor) { p.pre = pre }

// Set stores a new value after pre-processing. Out-of-range values are
// clamped silently; this is the documented contract.
func (p *Parameter) Set(v float64) {
	if p.pre != nil {
		v = p.pre(v)
	}
	p.value.Store(math.Float64bits(v))
}

// Value returns the current value.
func (p *Parameter) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// IntValue returns the current value rounded to an int.
func (p *Parameter) IntValue() int {
	return int(math.Round(p.Value()))
}

// BoolValue returns the current value as a bool.
func (p *Parameter) BoolValue() bool {
	return p.Value() > 0.5
}

// SetString stores a new string value. Ownership of the pointer moves to
// the parameter.
func (p *Parameter) SetString(v *string) {
	p.strValue.Store(v)
}

// StringValue returns the current string value.
func (p *Parameter) StringValue() string {
	if s := p.strValue.Load(); s != nil {
		return *s
	}
	return ""
}
