// Package netparams selects the Bitcoin network the wallet operates on.
package netparams

import "github.com/btcsuite/btcd/chaincfg"

// Params bundles a network's chain parameters with the directory name
// used for its data.
type Params struct {
	*chaincfg.Params
	Name string
}

// MainNetParams are the parameters for the main Bitcoin network.
var MainNetParams = Params{
	Params: &chaincfg.MainNetParams,
	Name:   "mainnet",
}

// TestNet3Params are the parameters for the version 3 test network.
var TestNet3Params = Params{
	Params: &chaincfg.TestNet3Params,
	Name:   "testnet",
}

// SimNetParams are the parameters for the simulation test network.
var SimNetParams = Params{
	Params: &chaincfg.SimNetParams,
	Name:   "simnet",
}
