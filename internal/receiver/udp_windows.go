//go:build windows

package receiver

import (
	"errors"
	"time"

	"golang.org/x/sys/windows"
)

// Windows reports truncation as WSAEMSGSIZE rather than through flags.
const msgTrunc = 0

var aLongTimeAgo = time.Unix(1, 0)

func isTruncation(err error) bool {
	return errors.Is(err, windows.WSAEMSGSIZE)
}
