package wallet

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/icetray-wallet/icetray/crypt"
	"github.com/icetray-wallet/icetray/descriptor"
	"github.com/icetray-wallet/icetray/serial"
)

// The persisted wallet layout, after container decryption, is the
// concatenation of codec-encoded fields in fixed order: block height,
// descriptor list, address map, txo map, key cache.  Map composites are
// written in unspecified order; only the decode round trip is
// contractual.

func (d *Descriptor) encode(out io.Writer) error {
	err := serial.WriteString(
		out, d.Template.String(), serial.MaxTemplateLen,
		"descriptor template",
	)
	if err != nil {
		return err
	}
	if err := serial.WriteUint32(out, d.Low); err != nil {
		return err
	}
	if err := serial.WriteUint32(out, d.High); err != nil {
		return err
	}
	return serial.WriteUint32(out, d.NextIdx)
}

func decodeDescriptor(r io.Reader) (*Descriptor, error) {
	text, err := serial.ReadString(
		r, serial.MaxTemplateLen, "descriptor template",
	)
	if err != nil {
		return nil, err
	}
	tmpl, err := descriptor.Parse(text)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{Template: tmpl}
	if d.Low, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	if d.High, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	if d.NextIdx, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *Address) encode(out io.Writer) error {
	if err := serial.WriteUint32(out, a.DescriptorIdx); err != nil {
		return err
	}
	if err := serial.WriteUint32(out, a.WildcardIdx); err != nil {
		return err
	}
	err := serial.WriteString(
		out, a.Created, serial.MaxStringLen, "address time",
	)
	if err != nil {
		return err
	}
	return serial.WriteString(
		out, a.Notes, serial.MaxStringLen, "address notes",
	)
}

func decodeAddress(r io.Reader) (*Address, error) {
	var (
		a   Address
		err error
	)
	if a.DescriptorIdx, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	if a.WildcardIdx, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	a.Created, err = serial.ReadString(
		r, serial.MaxStringLen, "address time",
	)
	if err != nil {
		return nil, err
	}
	a.Notes, err = serial.ReadString(
		r, serial.MaxStringLen, "address notes",
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *Txo) encode(out io.Writer) error {
	if err := serial.WriteUint32(out, t.DescriptorIdx); err != nil {
		return err
	}
	if err := serial.WriteUint32(out, t.WildcardIdx); err != nil {
		return err
	}
	if err := serial.WriteOutPoint(out, &t.OutPoint); err != nil {
		return err
	}
	if err := serial.WriteUint64(out, uint64(t.Value)); err != nil {
		return err
	}
	if err := serial.WriteUint64(out, t.Height); err != nil {
		return err
	}

	// Spending txid and spent height are only ever set together, so a
	// single presence byte covers both.
	if t.SpendingTxid == nil {
		return serial.WriteUint8(out, 0)
	}
	if err := serial.WriteUint8(out, 1); err != nil {
		return err
	}
	if err := serial.WriteHash(out, t.SpendingTxid); err != nil {
		return err
	}
	return serial.WriteUint64(out, t.SpentHeight)
}

func decodeTxo(r io.Reader) (*Txo, error) {
	var (
		t   Txo
		err error
	)
	if t.DescriptorIdx, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	if t.WildcardIdx, err = serial.ReadUint32(r); err != nil {
		return nil, err
	}
	if t.OutPoint, err = serial.ReadOutPoint(r); err != nil {
		return nil, err
	}
	value, err := serial.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	t.Value = int64(value)
	if t.Height, err = serial.ReadUint64(r); err != nil {
		return nil, err
	}

	hasSpent, err := serial.ReadUint8(r)
	if err != nil {
		return nil, err
	}
	if hasSpent != 0 {
		if t.SpendingTxid, err = serial.ReadHash(r); err != nil {
			return nil, err
		}
		if t.SpentHeight, err = serial.ReadUint64(r); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func writePath(out io.Writer, path descriptor.DerivationPath) error {
	err := serial.WriteLen(
		out, len(path), serial.MaxCollectionLen, "derivation path",
	)
	if err != nil {
		return err
	}
	for _, child := range path {
		if err := serial.WriteUint32(out, child); err != nil {
			return err
		}
	}
	return nil
}

func readPath(r io.Reader) (descriptor.DerivationPath, error) {
	n, err := serial.ReadLen(
		r, serial.MaxCollectionLen, "derivation path",
	)
	if err != nil {
		return nil, err
	}
	path := make(descriptor.DerivationPath, n)
	for i := range path {
		if path[i], err = serial.ReadUint32(r); err != nil {
			return nil, err
		}
	}
	return path, nil
}

// encode serializes the wallet in the persisted layout.
func (w *Wallet) encode(out io.Writer) error {
	if err := serial.WriteUint64(out, w.BlockHeight); err != nil {
		return err
	}

	err := serial.WriteLen(
		out, len(w.descriptors), serial.MaxCollectionLen,
		"descriptor list",
	)
	if err != nil {
		return err
	}
	for _, desc := range w.descriptors {
		if err := desc.encode(out); err != nil {
			return err
		}
	}

	err = serial.WriteLen(
		out, len(w.addresses), serial.MaxCollectionLen, "address map",
	)
	if err != nil {
		return err
	}
	for script, addr := range w.addresses {
		err := serial.WriteBytes(
			out, []byte(script), serial.MaxScriptLen,
			"output script",
		)
		if err != nil {
			return err
		}
		if err := addr.encode(out); err != nil {
			return err
		}
	}

	err = serial.WriteLen(
		out, len(w.txos), serial.MaxCollectionLen, "txo map",
	)
	if err != nil {
		return err
	}
	for outpoint, txo := range w.txos {
		op := outpoint
		if err := serial.WriteOutPoint(out, &op); err != nil {
			return err
		}
		if err := txo.encode(out); err != nil {
			return err
		}
	}

	err = serial.WriteLen(
		out, w.keyCache.Len(), serial.MaxCollectionLen, "key cache",
	)
	if err != nil {
		return err
	}
	return w.keyCache.forEach(func(path descriptor.DerivationPath,
		pub *btcec.PublicKey) error {

		if err := writePath(out, path); err != nil {
			return err
		}
		return serial.WritePublicKey(out, pub)
	})
}

// decode restores a wallet from the persisted layout.  Later duplicate
// map keys silently overwrite earlier ones.
func decode(r io.Reader, params *chaincfg.Params) (*Wallet, error) {
	w := New(params)

	var err error
	if w.BlockHeight, err = serial.ReadUint64(r); err != nil {
		return nil, err
	}

	numDescs, err := serial.ReadLen(
		r, serial.MaxCollectionLen, "descriptor list",
	)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numDescs; i++ {
		desc, err := decodeDescriptor(r)
		if err != nil {
			return nil, err
		}
		w.descriptors = append(w.descriptors, desc)
	}

	numAddrs, err := serial.ReadLen(
		r, serial.MaxCollectionLen, "address map",
	)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numAddrs; i++ {
		script, err := serial.ReadBytes(
			r, serial.MaxScriptLen, "output script",
		)
		if err != nil {
			return nil, err
		}
		addr, err := decodeAddress(r)
		if err != nil {
			return nil, err
		}
		w.addresses[string(script)] = addr
	}

	numTxos, err := serial.ReadLen(
		r, serial.MaxCollectionLen, "txo map",
	)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numTxos; i++ {
		outpoint, err := serial.ReadOutPoint(r)
		if err != nil {
			return nil, err
		}
		txo, err := decodeTxo(r)
		if err != nil {
			return nil, err
		}
		if txo.OutPoint != outpoint {
			return nil, fmt.Errorf("txo keyed by %s but records "+
				"outpoint %s: %w", outpoint, txo.OutPoint,
				serial.ErrMalformed)
		}
		w.txos[outpoint] = txo
	}

	numKeys, err := serial.ReadLen(
		r, serial.MaxCollectionLen, "key cache",
	)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numKeys; i++ {
		path, err := readPath(r)
		if err != nil {
			return nil, err
		}
		pub, err := serial.ReadPublicKey(r)
		if err != nil {
			return nil, err
		}
		w.keyCache.put(path, pub)
	}

	return w, nil
}

// Load reads a wallet from its encrypted container.  Any container or
// codec failure, including decryption under a wrong key, surfaces as a
// single ErrMalformedWallet; the load is abandoned whole.
func Load(r io.Reader, key [crypt.KeySize]byte,
	params *chaincfg.Params) (*Wallet, error) {

	cr, err := crypt.NewCryptReader(key, r)
	if err != nil {
		return nil, walletError(ErrMalformedWallet,
			"unable to open wallet container", err)
	}
	w, err := decode(cr, params)
	if err != nil {
		return nil, walletError(ErrMalformedWallet,
			"unable to decode wallet", err)
	}

	log.Infof("Loaded wallet: height %d, %d descriptors, %d addresses, "+
		"%d txos, %d cached keys", w.BlockHeight, len(w.descriptors),
		len(w.addresses), len(w.txos), w.keyCache.Len())

	return w, nil
}

// Save writes the wallet out in encrypted form.  A fresh nonce must be
// used for every save under the same key.
func (w *Wallet) Save(out io.Writer, key [crypt.KeySize]byte,
	nonce [crypt.NonceSize]byte) error {

	cw := crypt.NewCryptWriter(key, nonce, out)
	if err := cw.Init(); err != nil {
		return err
	}
	if err := w.encode(cw); err != nil {
		return walletError(ErrMalformedWallet,
			"unable to encode wallet", err)
	}
	return cw.Finalize()
}
