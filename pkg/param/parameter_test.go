package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatParameterClampsSilently(t *testing.T) {
	p := NewFloat("gain", "Gain", 1.0, 0.0, 2.0)

	assert.Equal(t, 1.0, p.Value())

	p.Set(0.5)
	assert.Equal(t, 0.5, p.Value())

	p.Set(5.0)
	assert.Equal(t, 2.0, p.Value(), "out-of-range values clamp to max")

	p.Set(-1.0)
	assert.Equal(t, 0.0, p.Value(), "out-of-range values clamp to min")
}

func TestIntAndBoolParameters(t *testing.T) {
	i := NewInt("transpose", "Transpose", 0, -24, 24)
	i.Set(12)
	assert.Equal(t, 12, i.IntValue())
	i.Set(100)
	assert.Equal(t, 24, i.IntValue())

	b := NewBool("bypass", "Bypass", false)
	assert.False(t, b.BoolValue())
	b.Set(1)
	assert.True(t, b.BoolValue())
}

func TestStringParameterOwnership(t *testing.T) {
	p := NewString("sample_file", "Sample File", "")
	v := "kick.wav"
	p.SetString(&v)
	assert.Equal(t, "kick.wav", p.StringValue())
}

func TestParameterIDsAreUnique(t *testing.T) {
	a := NewFloat("a", "A", 0, 0, 1)
	b := NewFloat("b", "B", 0, 0, 1)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRegistryOrderAndLookup(t *testing.T) {
	r := NewRegistry()
	a := NewFloat("attack", "Attack", 0.01, 0, 1)
	b := NewFloat("release", "Release", 0.1, 0, 1)
	r.Add(a, b)

	require.Equal(t, 2, r.Count())
	assert.Same(t, a, r.Get(a.ID()))
	assert.Same(t, b, r.GetByName("release"))

	all := r.All()
	require.Len(t, all, 2)
	assert.Same(t, a, all[0])
	assert.Same(t, b, all[1])

	// Duplicate adds are ignored.
	r.Add(a)
	assert.Equal(t, 2, r.Count())
}
