//go:build !unix

package file

import (
	"fmt"
	"os"
)

// fileLock only serializes handles within one process on platforms without
// flock.
type fileLock struct {
	f *os.File
}

func acquire(path string, _ bool) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) release() {
	_ = l.f.Close()
}
