package wallet

import (
	"testing"

	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/types"
	"github.com/stretchr/testify/require"
)

func TestAttemptPasswordMatchesLastSet(t *testing.T) {
	w, err := Create("alpha")
	require.NoError(t, err)

	ok, err := w.AttemptPassword("alpha")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = w.AttemptPassword("wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChangePasswordPreservesSeedAndKeys(t *testing.T) {
	w, err := Create("alpha")
	require.NoError(t, err)
	ok, err := w.AttemptPassword("alpha")
	require.NoError(t, err)
	require.True(t, ok)

	seedBefore, err := w.Seed()
	require.NoError(t, err)
	accounts := w.Accounts()
	require.Len(t, accounts, 1)
	keyBefore, err := w.PrivateKey(accounts[0].PublicKey)
	require.NoError(t, err)

	require.NoError(t, w.ChangePassword("beta"))

	seedAfter, err := w.Seed()
	require.NoError(t, err)
	require.Equal(t, seedBefore, seedAfter)

	keyAfter, err := w.PrivateKey(accounts[0].PublicKey)
	require.NoError(t, err)
	require.Equal(t, keyBefore, keyAfter)
}

func TestLockGatesUnlockedOperations(t *testing.T) {
	w, err := Create("alpha")
	require.NoError(t, err)
	_, err = w.AttemptPassword("alpha")
	require.NoError(t, err)

	w.Lock()

	_, err = w.Seed()
	require.Error(t, err)
	require.True(t, types.CodeEquals(err, types.WalletLocked))

	ok, err := w.AttemptPassword("alpha")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = w.Seed()
	require.NoError(t, err)
}

func TestCreateAccountDeterministic(t *testing.T) {
	seed := types.RawKey{1}
	w1, err := FromSeed("alpha", seed)
	require.NoError(t, err)
	_, err = w1.AttemptPassword("alpha")
	require.NoError(t, err)
	_, pk1, err := w1.CreateAccount()
	require.NoError(t, err)

	w2, err := FromSeed("alpha", seed)
	require.NoError(t, err)
	_, err = w2.AttemptPassword("alpha")
	require.NoError(t, err)
	_, pk2, err := w2.CreateAccount()
	require.NoError(t, err)

	require.Equal(t, pk1, pk2)

	expected := crypto.GeneratePublicKey(crypto.HashAccountIndex(seed, 1))
	require.Equal(t, expected, pk1)
}

func TestImportAccountRejectsDuplicate(t *testing.T) {
	w, err := Create("alpha")
	require.NoError(t, err)
	_, err = w.AttemptPassword("alpha")
	require.NoError(t, err)

	priv := crypto.RandomRawKey()
	id1, err := w.ImportAccount(priv)
	require.NoError(t, err)
	require.NotZero(t, id1)

	_, err = w.ImportAccount(priv)
	require.Error(t, err)
	require.True(t, types.CodeEquals(err, types.WalletAccountExists))
}

func TestAccountsOrderAndIDs(t *testing.T) {
	w, err := Create("alpha")
	require.NoError(t, err)
	_, err = w.AttemptPassword("alpha")
	require.NoError(t, err)

	_, _, err = w.CreateAccount()
	require.NoError(t, err)
	_, err = w.ImportAccount(crypto.RandomRawKey())
	require.NoError(t, err)

	accounts := w.Accounts()
	require.Len(t, accounts, 3)
	for i := 1; i < len(accounts); i++ {
		require.Greater(t, accounts[i].ID, accounts[i-1].ID)
	}
	require.False(t, accounts[0].IsAdHoc)
	require.True(t, accounts[2].IsAdHoc)
}
