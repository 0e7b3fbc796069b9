//go:build !unix

package trash

import "errors"

func topDir(string) (string, error) {
	return "", errors.New("volume trash is not supported on this platform")
}
