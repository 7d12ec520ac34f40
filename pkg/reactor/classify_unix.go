//go:build unix

package reactor

import (
	"errors"

	temperrcatcher "github.com/jbenet/go-temp-err-catcher"
	"golang.org/x/sys/unix"
)

func isReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNABORTED)
}

// isTemporaryAccept reports whether an Accept error is worth retrying.
func isTemporaryAccept(err error) bool {
	return temperrcatcher.ErrIsTemporary(err) ||
		errors.Is(err, unix.ECONNABORTED) ||
		errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ENOBUFS) ||
		errors.Is(err, unix.ENOMEM)
}
