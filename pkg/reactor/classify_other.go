//go:build !unix

package reactor

import (
	"errors"
	"syscall"

	temperrcatcher "github.com/jbenet/go-temp-err-catcher"
)

func isReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func isTemporaryAccept(err error) bool {
	return temperrcatcher.ErrIsTemporary(err) ||
		errors.Is(err, syscall.ECONNABORTED)
}
