package wallet

import "fmt"

// ErrorCode identifies a kind of wallet error.
type ErrorCode int

const (
	// ErrDuplicateDescriptor indicates an attempt to register a
	// descriptor with a template and range identical to one already in
	// the wallet.
	ErrDuplicateDescriptor ErrorCode = iota

	// ErrDescriptorIndex indicates a descriptor index outside the
	// wallet's descriptor list.
	ErrDescriptorIndex

	// ErrTxoNotFound indicates a lookup for an outpoint the wallet does
	// not track.
	ErrTxoNotFound

	// ErrMalformedWallet indicates the on-disk wallet data could not be
	// decrypted or decoded.  The whole load operation is abandoned;
	// there is no partial recovery.
	ErrMalformedWallet
)

var errCodeStrings = map[ErrorCode]string{
	ErrDuplicateDescriptor: "ErrDuplicateDescriptor",
	ErrDescriptorIndex:     "ErrDescriptorIndex",
	ErrTxoNotFound:         "ErrTxoNotFound",
	ErrMalformedWallet:     "ErrMalformedWallet",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s, ok := errCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error is a wallet error, carrying a code for programmatic inspection
// and a human-readable description.  The underlying error, if any, is
// preserved for unwrapping.
type Error struct {
	Code        ErrorCode
	Description string
	Err         error
}

// Error satisfies the error interface.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// walletError creates a new Error.
func walletError(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Description: desc, Err: err}
}

// IsError reports whether err is a wallet Error with the given code.
func IsError(err error, code ErrorCode) bool {
	e, ok := err.(Error)
	return ok && e.Code == code
}
