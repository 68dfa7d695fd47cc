//go:build unix

package receiver

import (
	"time"

	"golang.org/x/sys/unix"
)

const msgTrunc = unix.MSG_TRUNC

var aLongTimeAgo = time.Unix(1, 0)

// isTruncation reports whether a read error means the datagram did not fit.
// Unix systems report truncation through the message flags instead.
func isTruncation(error) bool { return false }
