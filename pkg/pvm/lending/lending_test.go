package lending

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertLendReturn(t *testing.T) {
	lib := New[int64, string]()

	require.NoError(t, lib.Insert(1, "test"))
	require.True(t, lib.Contains(1))
	require.NoError(t, lib.Insert(2, "double test"))

	first, err := lib.Lend(1)
	require.NoError(t, err)
	require.Equal(t, "test", first.Value())

	first.Set(first.Value() + "-even more")
	require.NoError(t, first.Return())

	again, err := lib.Lend(1)
	require.NoError(t, err)
	require.Equal(t, "test-even more", again.Value())
	require.NoError(t, again.Return())

	require.True(t, lib.Contains(2))
	require.NoError(t, lib.Remove(2))
	require.False(t, lib.Contains(2))
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	lib := New[int64, string]()
	require.NoError(t, lib.Insert(1, "test"))

	err := lib.Insert(1, "other")
	require.ErrorIs(t, err, ErrKeyExists)
}

func TestLendAlreadyLentFails(t *testing.T) {
	lib := New[int64, string]()
	require.NoError(t, lib.Insert(1, "test"))

	loan, err := lib.Lend(1)
	require.NoError(t, err)

	_, err = lib.Lend(1)
	require.ErrorIs(t, err, ErrAlreadyLent)

	require.NoError(t, loan.Return())
}

func TestRemoveWhileLentFails(t *testing.T) {
	lib := New[int64, string]()
	require.NoError(t, lib.Insert(1, "test"))

	loan, err := lib.Lend(1)
	require.NoError(t, err)

	err = lib.Remove(1)
	require.ErrorIs(t, err, ErrLoanOutstanding)

	require.NoError(t, loan.Return())
	require.NoError(t, lib.Remove(1))
}

func TestReturnTwiceFails(t *testing.T) {
	lib := New[int64, string]()
	require.NoError(t, lib.Insert(1, "test"))

	loan, err := lib.Lend(1)
	require.NoError(t, err)

	require.NoError(t, loan.Return())

	err = loan.Return()
	require.True(t, errors.Is(err, ErrAlreadyReturned))
}

func TestLendMissingKeyFails(t *testing.T) {
	lib := New[int64, string]()

	_, err := lib.Lend(1)
	require.ErrorIs(t, err, ErrKeyNotFound)
}
