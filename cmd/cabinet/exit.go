package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/file-cabinet/cabinet/huffman"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/storage"
	"github.com/ZanzyTHEbar/file-cabinet/cabinet/trees"

	"github.com/spf13/cobra"
)

// Exit codes, one per error kind so scripts can branch on failures.
const (
	_ = iota
	codeInternal
	codeNotFound
	codeDuplicate
	codeMalformed
	codeCorrupt
	codeBadModel
	codeInvariant
)

// ExitOnErr prints the error and exits with a code depending on its kind
//
//	0 if nil
//	2 if the key or object was not found
//	3 if a strict insert hit a duplicate key
//	4 if a key was malformed
//	5 if a compressed stream was corrupt
//	6 if a frequency model was unusable
//	7 if a tree invariant was violated
//	1 otherwise
func ExitOnErr(cmd *cobra.Command, errFmt string, err error) {
	if err == nil {
		return
	}

	if errFmt != "" {
		err = fmt.Errorf(errFmt, err)
	}

	cmd.PrintErrln(err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, trees.ErrKeyNotFound), errors.Is(err, storage.ErrObjectNotFound):
		return codeNotFound
	case errors.Is(err, trees.ErrDuplicateKey):
		return codeDuplicate
	case errors.Is(err, trees.ErrMalformedKey):
		return codeMalformed
	case errors.Is(err, huffman.ErrCorruptStream):
		return codeCorrupt
	case errors.Is(err, huffman.ErrInvalidFrequencyTable), errors.Is(err, huffman.ErrDegenerateAlphabet):
		return codeBadModel
	case errors.Is(err, trees.ErrInvariantViolation):
		return codeInvariant
	default:
		return codeInternal
	}
}
