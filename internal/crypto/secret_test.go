package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	sealer, err := NewSealer(key)
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("public-community-string"))
	require.NoError(t, err)

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "public-community-string", string(opened))
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	keyA, _ := GenerateKey()
	keyB, _ := GenerateKey()

	sealerA, _ := NewSealer(keyA)
	sealerB, _ := NewSealer(keyB)

	sealed, err := sealerA.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = sealerB.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealerRejectsBadKeyLength(t *testing.T) {
	_, err := NewSealer([]byte("too-short"))
	assert.Error(t, err)
}

func TestOpenRejectsTruncatedInput(t *testing.T) {
	key, _ := GenerateKey()
	sealer, _ := NewSealer(key)
	_, err := sealer.Open([]byte("short"))
	assert.Error(t, err)
}
