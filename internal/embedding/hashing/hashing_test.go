package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	e := NewEmbedder(128)
	first, err := e.Embed(context.Background(), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "The quick brown fox jumps over the lazy dog.")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmbedDimension(t *testing.T) {
	e := NewEmbedder(64)
	assert.Equal(t, 64, e.Dimension())
	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
}

func TestEmbedUnitNorm(t *testing.T) {
	e := NewEmbedder(128)
	vec, err := e.Embed(context.Background(), "vectors should come back normalized for cosine search")
	require.NoError(t, err)
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbedStopwordsOnly(t *testing.T) {
	e := NewEmbedder(32)
	vec, err := e.Embed(context.Background(), "the and of in on")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedDistinctTexts(t *testing.T) {
	e := NewEmbedder(256)
	a, err := e.Embed(context.Background(), "insurance policy premium waiting period")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "cooking recipes pasta tomato garlic")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
