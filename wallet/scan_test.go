package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// payingTx builds a transaction with one throwaway input and one output
// paying value to script.
func payingTx(t *testing.T, script []byte, value int64,
	prev wire.OutPoint) *wire.MsgTx {

	t.Helper()

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&prev, nil, nil))
	tx.AddTxOut(wire.NewTxOut(value, script))
	return tx
}

func TestScanBlockReceive(t *testing.T) {
	w, fake := testWallet(t)
	tmpl := testDescriptor(t, "wpkh("+testXpub+"/84h/0h/0h/0/*)")
	_, err := w.AddDescriptor(fake, tmpl, 0, 3)
	require.NoError(t, err)

	index, err := w.ScriptPubkeyCache(fake)
	require.NoError(t, err)
	require.Equal(t, 3, index.Len())

	script, err := w.scriptPubkey(fake, 0, 1)
	require.NoError(t, err)

	tx := payingTx(t, script, 5000, wire.OutPoint{Index: 0})
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}

	received, spent := w.ScanBlock(block, 100, index)
	require.Len(t, received, 1)
	require.Empty(t, spent)

	outpoint := wire.OutPoint{Hash: tx.TxHash(), Index: 0}
	require.Contains(t, received, outpoint)

	info, err := w.Txo(fake, outpoint)
	require.NoError(t, err)
	require.Equal(t, int64(5000), info.Value())
	require.True(t, info.IsUnspent())
	require.Equal(t, uint32(0), info.Txo.DescriptorIdx)
	require.Equal(t, uint32(1), info.Txo.WildcardIdx)
	require.Equal(t, uint64(100), info.Txo.Height)
	require.Nil(t, info.Label)

	require.Equal(t, int64(5000), int64(w.Balance()))
}

func TestScanBlockSpend(t *testing.T) {
	w, fake := testWallet(t)
	tmpl := testDescriptor(t, "wpkh("+testXpub+"/84h/0h/0h/0/*)")
	_, err := w.AddDescriptor(fake, tmpl, 0, 3)
	require.NoError(t, err)

	index, err := w.ScriptPubkeyCache(fake)
	require.NoError(t, err)

	script, err := w.scriptPubkey(fake, 0, 0)
	require.NoError(t, err)

	fund := payingTx(t, script, 7000, wire.OutPoint{Index: 0})
	w.ScanBlock(&wire.MsgBlock{
		Transactions: []*wire.MsgTx{fund},
	}, 100, index)

	funded := wire.OutPoint{Hash: fund.TxHash(), Index: 0}
	spend := payingTx(t, []byte{0x6a}, 6000, funded)

	received, spent := w.ScanBlock(&wire.MsgBlock{
		Transactions: []*wire.MsgTx{spend},
	}, 110, index)
	require.Empty(t, received)
	require.Len(t, spent, 1)
	require.Contains(t, spent, funded)

	info, err := w.Txo(fake, funded)
	require.NoError(t, err)
	require.False(t, info.IsUnspent())
	spendHash := spend.TxHash()
	require.Equal(t, &spendHash, info.Txo.SpendingTxid)
	require.Equal(t, uint64(110), info.Txo.SpentHeight)

	require.Equal(t, int64(0), int64(w.Balance()))
}

func TestScanBlockSelfTransfer(t *testing.T) {
	w, fake := testWallet(t)
	tmpl := testDescriptor(t, "wpkh("+testXpub+"/84h/0h/0h/0/*)")
	_, err := w.AddDescriptor(fake, tmpl, 0, 3)
	require.NoError(t, err)

	index, err := w.ScriptPubkeyCache(fake)
	require.NoError(t, err)

	scriptA, err := w.scriptPubkey(fake, 0, 0)
	require.NoError(t, err)
	scriptB, err := w.scriptPubkey(fake, 0, 1)
	require.NoError(t, err)

	fund := payingTx(t, scriptA, 9000, wire.OutPoint{Index: 0})
	w.ScanBlock(&wire.MsgBlock{
		Transactions: []*wire.MsgTx{fund},
	}, 100, index)

	// A single block both spending the tracked output and paying back to
	// another tracked script must report one receive and one spend.
	funded := wire.OutPoint{Hash: fund.TxHash(), Index: 0}
	shuffle := payingTx(t, scriptB, 8000, funded)

	received, spent := w.ScanBlock(&wire.MsgBlock{
		Transactions: []*wire.MsgTx{shuffle},
	}, 101, index)
	require.Len(t, received, 1)
	require.Len(t, spent, 1)

	require.Equal(t, 2, w.NumTxos())
	require.Equal(t, int64(8000), int64(w.Balance()))
}

func TestScanBlockIgnoresForeign(t *testing.T) {
	w, fake := testWallet(t)
	tmpl := testDescriptor(t, "wpkh("+testXpub+"/84h/0h/0h/0/*)")
	_, err := w.AddDescriptor(fake, tmpl, 0, 3)
	require.NoError(t, err)

	index, err := w.ScriptPubkeyCache(fake)
	require.NoError(t, err)

	foreign := payingTx(t, []byte{0x6a, 0x01, 0x02}, 1234,
		wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 3})
	received, spent := w.ScanBlock(&wire.MsgBlock{
		Transactions: []*wire.MsgTx{foreign},
	}, 100, index)
	require.Empty(t, received)
	require.Empty(t, spent)
	require.Equal(t, 0, w.NumTxos())
}

func TestTxoNotFound(t *testing.T) {
	w, fake := testWallet(t)

	_, err := w.Txo(fake, wire.OutPoint{Index: 1})
	require.True(t, IsError(err, ErrTxoNotFound))
}

func TestAllTxosOrdering(t *testing.T) {
	w, fake := testWallet(t)
	tmpl := testDescriptor(t, "wpkh("+testXpub+"/84h/0h/0h/0/*)")
	_, err := w.AddDescriptor(fake, tmpl, 0, 3)
	require.NoError(t, err)

	index, err := w.ScriptPubkeyCache(fake)
	require.NoError(t, err)

	script0, err := w.scriptPubkey(fake, 0, 0)
	require.NoError(t, err)
	script2, err := w.scriptPubkey(fake, 0, 2)
	require.NoError(t, err)

	// Later height first, to prove ordering is by height rather than
	// insertion.
	w.ScanBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{
		payingTx(t, script2, 100, wire.OutPoint{Index: 0}),
	}}, 200, index)
	w.ScanBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{
		payingTx(t, script0, 200, wire.OutPoint{Index: 1}),
	}}, 150, index)

	infos, err := w.AllTxos(fake)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, uint64(150), infos[0].Txo.Height)
	require.Equal(t, uint64(200), infos[1].Txo.Height)
}
