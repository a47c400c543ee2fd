package git

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const rawLog = `commit 2f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098
tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904
parent 1f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098
author A <a@example.com> 1577880000 +0100
committer B <b@example.com> 1577880060 +0100
gpgsig -----BEGIN PGP SIGNATURE-----
 
 iQEzBAABCAAdFiEE
 -----END PGP SIGNATURE-----

    Second commit
    
    podstrom-path: sub
    podstrom-original-id: 0f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098

commit 1f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098
tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904
author A <a@example.com> 1577880000 +0100
committer A <a@example.com> 1577880000 +0100

    First
`

func TestParseRawLog(t *testing.T) {
	t.Run("yields every commit with message and committer time", func(t *testing.T) {
		var got []CommitInfo
		err := parseRawLog(strings.NewReader(rawLog), func(c CommitInfo) error {
			got = append(got, c)
			return nil
		})
		require.NoError(t, err)
		require.Len(t, got, 2)

		require.Equal(t, ObjectID("2f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098"), got[0].ID)
		require.Equal(t, "Second commit\n\npodstrom-path: sub\npodstrom-original-id: 0f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098\n", got[0].Message)
		require.True(t, got[0].CommitterTime.Equal(time.Unix(1577880060, 0)))

		require.Equal(t, ObjectID("1f3c2a9b8e7d6c5b4a39281706f5e4d3c2b1a098"), got[1].ID)
		require.Equal(t, "First\n", got[1].Message)
	})

	t.Run("empty log", func(t *testing.T) {
		calls := 0
		require.NoError(t, parseRawLog(strings.NewReader(""), func(CommitInfo) error {
			calls++
			return nil
		}))
		require.Zero(t, calls)
	})

	t.Run("callback error stops the scan", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := parseRawLog(strings.NewReader(rawLog), func(CommitInfo) error {
			calls++
			return stop
		})
		require.ErrorIs(t, err, stop)
		require.Equal(t, 1, calls)
	})

	t.Run("garbage before the first commit", func(t *testing.T) {
		err := parseRawLog(strings.NewReader("fatal: something\n"), func(CommitInfo) error { return nil })
		require.Error(t, err)
	})
}

func TestParseSignatureTime(t *testing.T) {
	require.Equal(t, int64(1577880000), parseSignatureTime("committer A B <a@example.com> 1577880000 -0500").Unix())
	require.True(t, parseSignatureTime("committer broken").IsZero())
}
