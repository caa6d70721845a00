package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors yield 1", func(t *testing.T) {
		var v Vector
		for i := range v {
			v[i] = 5
		}
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
	})

	t.Run("zero-magnitude operand yields 0", func(t *testing.T) {
		var zero Vector
		var v Vector
		v[0] = 3
		assert.Equal(t, 0.0, Cosine(zero, v))
		assert.Equal(t, 0.0, Cosine(v, zero))
		assert.Equal(t, 0.0, Cosine(zero, zero))
	})

	t.Run("symmetric", func(t *testing.T) {
		var a, b Vector
		for i := range a {
			a[i] = float32(i + 1)
			b[i] = float32(Dim - i)
		}
		assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-12)
	})

	t.Run("opposite vectors yield -1", func(t *testing.T) {
		var a, b Vector
		for i := range a {
			a[i] = 1
			b[i] = -1
		}
		assert.InDelta(t, -1.0, Cosine(a, b), 1e-9)
	})
}

func TestNormalizeL2(t *testing.T) {
	t.Run("scales to unit length", func(t *testing.T) {
		var v Vector
		v[0] = 3
		v[1] = 4
		NormalizeL2(&v)
		assert.InDelta(t, 1.0, v.Magnitude(), 1e-6)
		assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	})

	t.Run("zero vector unchanged", func(t *testing.T) {
		var v Vector
		NormalizeL2(&v)
		assert.Equal(t, Vector{}, v)
	})
}

func TestFromSlice(t *testing.T) {
	v := FromSlice([]float32{1, 2, 3})
	assert.Equal(t, float32(1), v[0])
	assert.Equal(t, float32(3), v[2])
	assert.Equal(t, float32(0), v[3])

	round := FromSlice(v.Slice())
	assert.Equal(t, v, round)
}

func TestMagnitude(t *testing.T) {
	var v Vector
	for i := range v {
		v[i] = 1
	}
	assert.InDelta(t, math.Sqrt(Dim), v.Magnitude(), 1e-9)
}
