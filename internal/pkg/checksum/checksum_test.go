package checksum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("5d41402abc4b2a76b9719d911017c592")
	require.NoError(t, err)
	require.Equal(t, MD5, d.Algorithm)

	d, err = Parse("SHA256:2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824")
	require.NoError(t, err)
	require.Equal(t, SHA256, d.Algorithm)
	require.Equal(t, "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", d.String())

	for _, bad := range []string{"", "abc", "md5:zz41402abc4b2a76b9719d911017c592", "crc32:deadbeef", "sha1:5d41402abc4b2a76b9719d911017c592"} {
		_, err := Parse(bad)
		require.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestSumMatchesParse(t *testing.T) {
	data := []byte("hello")
	for _, algo := range []Algorithm{MD5, SHA1, SHA256, BLAKE2b} {
		sum, err := Sum(algo, data)
		require.NoError(t, err)

		parsed, err := Parse(sum.String())
		require.NoError(t, err)
		require.True(t, parsed.Matches(sum), algo)

		streamed, n, err := Compute(algo, bytes.NewReader(data))
		require.NoError(t, err)
		require.EqualValues(t, len(data), n)
		require.True(t, streamed.Matches(sum), algo)
	}

	md5sum, _ := Sum(MD5, data)
	shasum, _ := Sum(SHA256, data)
	require.False(t, md5sum.Matches(shasum))
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", md5sum.Hex)
}
