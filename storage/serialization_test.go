package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalPoint_PayloadTypes(t *testing.T) {
	p := &Point{
		ID:     "a1",
		Vector: []float32{0.25, -1},
		Payload: map[string]any{
			"file_path":   "/books/core.md",
			"chunk_index": 3,
			"hints":       []string{"npc_content"},
		},
	}

	data, err := MarshalPoint(p)
	require.NoError(t, err)

	decoded, err := UnmarshalPoint(data)
	require.NoError(t, err)
	assert.Equal(t, p.ID, decoded.ID)
	assert.Equal(t, p.Vector, decoded.Vector)
	// Numbers come back as float64 and lists as []any.
	assert.Equal(t, float64(3), decoded.Payload["chunk_index"])
	assert.Equal(t, []any{"npc_content"}, decoded.Payload["hints"])
}

func TestUnmarshalPoint(t *testing.T) {
	t.Run("nil payload becomes empty", func(t *testing.T) {
		p, err := UnmarshalPoint([]byte(`{"id":"x","vector":[1]}`))
		require.NoError(t, err)
		assert.NotNil(t, p.Payload)
	})

	t.Run("invalid data", func(t *testing.T) {
		_, err := UnmarshalPoint([]byte{0x01, 0x02})
		require.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestUnmarshalCollection_Invalid(t *testing.T) {
	_, err := UnmarshalCollection([]byte("{"))
	require.ErrorIs(t, err, ErrSerializationFailed)
}

func TestFilterMatches(t *testing.T) {
	payload := map[string]any{"file_path": "/a.md", "chunk_index": float64(1)}

	var none *Filter
	assert.True(t, none.Matches(payload))
	assert.True(t, MatchFile("/a.md").Matches(payload))
	assert.False(t, MatchFile("/b.md").Matches(payload))
	assert.False(t, (&Filter{Field: "chunk_index", Value: "1"}).Matches(payload))
	assert.False(t, (&Filter{Field: "missing", Value: ""}).Matches(payload))
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want Distance
	}{
		{"", DistanceCosine},
		{"Cosine", DistanceCosine},
		{"l2", DistanceEuclid},
		{"DOT", DistanceDot},
	}
	for _, tt := range tests {
		got, err := ParseDistance(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDistance("manhattan")
	require.ErrorIs(t, err, ErrInvalidQuery)
}
