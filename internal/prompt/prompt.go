// Package prompt provides the interactive passphrase prompts used when
// creating and opening wallets.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/icetray-wallet/icetray/internal/zero"
)

// ErrPassphraseMismatch is returned when the confirmation passphrase
// does not match the first entry.
var ErrPassphraseMismatch = errors.New("passphrases do not match")

var stdin = bufio.NewReader(os.Stdin)

// readPass reads one passphrase, with echo disabled when stdin is a
// terminal.  Piped input falls back to reading a single line, which
// keeps scripted use working.
func readPass(promptText string) ([]byte, error) {
	fmt.Print(promptText)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pass, err := term.ReadPassword(fd)
		fmt.Println()
		return pass, err
	}

	line, err := stdin.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// Passphrase prompts for the wallet passphrase.  When confirm is set the
// passphrase must be entered twice and must not be empty; this is the
// creation path.  The returned bytes should be zeroed by the caller once
// the key is derived.
func Passphrase(confirm bool) ([]byte, error) {
	pass, err := readPass("Enter the wallet passphrase: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return pass, nil
	}

	if len(pass) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}
	again, err := readPass("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pass, again) {
		zero.Bytes(pass)
		zero.Bytes(again)
		return nil, ErrPassphraseMismatch
	}
	zero.Bytes(again)

	return pass, nil
}
