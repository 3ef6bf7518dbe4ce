//go:build !unix

package orchestrator

import "errors"

var errFreeSpaceUnsupported = errors.New("free space check unsupported on this platform")

func freeBytes(string) (uint64, error) {
	return 0, errFreeSpaceUnsupported
}
