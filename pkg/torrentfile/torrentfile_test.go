package torrentfile_test

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ravel-io/mtor/pkg/torrentfile"
)

// a tiny hand-built single-file metainfo, two 4-byte pieces.
const singleFile = `d8:announce20:http://tracker.test/4:infod6:lengthi8e4:name8:test.bin12:piece lengthi4e6:pieces40:` +
	"AAAAAAAAAAAAAAAAAAAABBBBBBBBBBBBBBBBBBBB" + `ee`

func TestParseSingleFile(t *testing.T) {
	f, err := torrentfile.Parse(strings.NewReader(singleFile))
	require.NoError(t, err)

	require.True(t, f.IsSingleFile())
	require.Equal(t, 8, f.TotalLength())
	require.Equal(t, 2, f.PieceCount())
	require.Equal(t, 4, f.PieceLength(0))
	require.Equal(t, 4, f.PieceLength(1))
}

func TestInfoHashStableUnderFieldOrder(t *testing.T) {
	f, err := torrentfile.Parse(strings.NewReader(singleFile))
	require.NoError(t, err)

	hash, err := f.InfoHash()
	require.NoError(t, err)
	require.NotEqual(t, strings.Repeat("0", 40), hex.EncodeToString(hash[:]))

	// Info declares its fields in a different order than their bencoded
	// keys; the hash must still be that of the info dict's bytes exactly
	// as they appear in the file.
	start := strings.Index(singleFile, "4:info") + len("4:info")
	require.Equal(t, sha1.Sum([]byte(singleFile[start:len(singleFile)-1])), hash)

	// re-parsing the same bytes must produce the same hash.
	f2, err := torrentfile.Parse(bytes.NewReader([]byte(singleFile)))
	require.NoError(t, err)
	hash2, err := f2.InfoHash()
	require.NoError(t, err)
	require.Equal(t, hash, hash2)
}

func TestParseMalformedPieces(t *testing.T) {
	bad := `d8:announce4:test4:infod6:lengthi1e4:name1:a12:piece lengthi1e6:pieces3:abce`
	_, err := torrentfile.Parse(strings.NewReader(bad))
	require.Error(t, err)
}
