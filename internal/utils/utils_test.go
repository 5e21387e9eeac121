package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() *[32]byte {
	var k [32]byte
	for i := range k {
		k[i] = byte(i)
	}
	return &k
}

func TestSealOpen(t *testing.T) {
	key := testKey()
	sealed, err := Seal("eyJhbGciOiJIUzI1NiJ9.payload.sig", key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "payload")

	plain, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOiJIUzI1NiJ9.payload.sig", plain)
}

func TestSeal_NonceIsRandom(t *testing.T) {
	key := testKey()
	a, err := Seal("token", key)
	require.NoError(t, err)
	b, err := Seal("token", key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_Errors(t *testing.T) {
	key := testKey()
	_, err := Open("", key)
	assert.Error(t, err)

	_, err = Open("not-hex", key)
	assert.Error(t, err)

	_, err = Open("abcd", key)
	assert.Error(t, err)

	sealed, err := Seal("token", key)
	require.NoError(t, err)
	var other [32]byte
	_, err = Open(sealed, &other)
	assert.Error(t, err)
}

func TestParseSeries(t *testing.T) {
	v, err := ParseSeries("10,12, 15 ,14,18")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 15, 14, 18}, v)

	v, err = ParseSeries("-3.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{-3.5}, v)
}

func TestParseSeries_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "1,,2", "1,abc", "NaN", "1,Inf"} {
		_, err := ParseSeries(in)
		assert.Error(t, err, "input %q", in)
	}
}
