package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blob struct{ data string }

func (b blob) MarshalBinary() ([]byte, error) { return []byte(b.data), nil }

func (b *blob) UnmarshalBinary(data []byte) error {
	b.data = string(data)
	return nil
}

func TestKey(t *testing.T) {
	key, err := Key("scorecard", "TX", "100", "0")
	require.NoError(t, err)
	assert.Equal(t, "scorecard:TX:100:0", key)

	_, err = Key("scorecard", "", "100")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(blob{data: "payload"})
	require.NoError(t, err)

	var out blob
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, "payload", out.data)

	var s string
	require.NoError(t, Decode([]byte("plain"), &s))
	assert.Equal(t, "plain", s)

	_, err = Encode(42)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorIs(t, Decode(data, new(int)), ErrInvalidValue)
}
