package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/icetray-wallet/icetray/crypt"
	"github.com/icetray-wallet/icetray/dongle"
	"github.com/icetray-wallet/icetray/internal/prompt"
	"github.com/icetray-wallet/icetray/internal/zero"
	"github.com/icetray-wallet/icetray/netparams"
	"github.com/icetray-wallet/icetray/wallet"
)

// networkDir returns the directory holding one network's wallet files.
func networkDir(dataDir string, net *netparams.Params) string {
	return filepath.Join(dataDir, net.Name)
}

// checkCreateDir ensures path exists and is a directory, creating it
// when missing.
func checkCreateDir(path string) error {
	fi, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, 0700); err != nil {
			return fmt.Errorf("cannot create directory %s: %v",
				path, err)
		}
	case err != nil:
		return fmt.Errorf("error checking directory %s: %v", path, err)
	case !fi.IsDir():
		return fmt.Errorf("path %q is not a directory", path)
	}
	return nil
}

// createWallet prompts for a passphrase and writes out a fresh empty
// wallet, its key-derivation sidecar file, and a signer seed.
func createWallet(cfg *config) error {
	netDir := networkDir(cfg.AppDataDir, activeNet)
	if err := checkCreateDir(netDir); err != nil {
		return err
	}

	walletPath := filepath.Join(netDir, walletFilename)
	if _, err := os.Stat(walletPath); err == nil {
		return fmt.Errorf("the wallet file %q already exists", walletPath)
	} else if !os.IsNotExist(err) {
		return err
	}

	pass, err := prompt.Passphrase(true)
	if err != nil {
		return err
	}

	fmt.Println("Creating the wallet...")
	secretKey, err := crypt.NewSecretKey(
		&pass, crypt.DefaultScryptN, crypt.DefaultScryptR,
		crypt.DefaultScryptP,
	)
	zero.Bytes(pass)
	if err != nil {
		return err
	}
	defer secretKey.Zero()

	keyPath := filepath.Join(netDir, keyFilename)
	if err := os.WriteFile(keyPath, secretKey.Marshal(), 0600); err != nil {
		return fmt.Errorf("writing key file: %v", err)
	}

	// TODO: drive a hardware signer over HID instead of seeding a
	// software one from disk.
	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		return err
	}
	seedPath := filepath.Join(netDir, seedFilename)
	if err := os.WriteFile(seedPath, seed, 0600); err != nil {
		return fmt.Errorf("writing signer seed: %v", err)
	}
	zero.Bytes(seed)

	w := wallet.New(activeNet.Params)
	if err := saveWallet(w, walletPath, secretKey.Key); err != nil {
		return err
	}

	fmt.Println("The wallet has been created successfully!")
	return nil
}

// openDongle connects to the signing authority.
func openDongle(netDir string) (dongle.Dongle, error) {
	seed, err := os.ReadFile(filepath.Join(netDir, seedFilename))
	if err != nil {
		return nil, fmt.Errorf("reading signer seed: %v", err)
	}
	defer zero.Bytes(seed)

	return dongle.NewFake(seed, activeNet.Params)
}

// walletKey prompts for the passphrase and re-derives the container key
// from the sidecar key file.
func walletKey(netDir string) ([crypt.KeySize]byte, error) {
	var key [crypt.KeySize]byte

	marshalled, err := os.ReadFile(filepath.Join(netDir, keyFilename))
	if err != nil {
		return key, fmt.Errorf("reading key file (run with --create "+
			"to initialize a wallet): %v", err)
	}
	var secretKey crypt.SecretKey
	if err := secretKey.Unmarshal(marshalled); err != nil {
		return key, fmt.Errorf("corrupt key file: %v", err)
	}

	pass, err := prompt.Passphrase(false)
	if err != nil {
		return key, err
	}
	err = secretKey.DeriveKey(&pass)
	zero.Bytes(pass)
	if err != nil {
		return key, err
	}

	return secretKey.Key, nil
}

// openWallet loads the encrypted wallet from disk.
func openWallet(netDir string, key [crypt.KeySize]byte) (*wallet.Wallet, error) {
	fh, err := os.Open(filepath.Join(netDir, walletFilename))
	if err != nil {
		return nil, fmt.Errorf("opening wallet: %v", err)
	}
	defer fh.Close()

	return wallet.Load(fh, key, activeNet.Params)
}

// saveWallet writes the wallet under a fresh nonce, going through a
// temporary file so a failed save never clobbers the previous state.
func saveWallet(w *wallet.Wallet, walletPath string,
	key [crypt.KeySize]byte) error {

	nonce, err := crypt.RandomNonce()
	if err != nil {
		return err
	}

	tmpPath := walletPath + ".tmp"
	fh, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if err := w.Save(fh, key, nonce); err != nil {
		fh.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, walletPath)
}
