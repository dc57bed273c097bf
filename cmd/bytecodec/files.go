package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// readFilePart reads length bytes of path starting at offset. A zero length
// reads to the end of the file. An offset past the end yields no bytes.
func readFilePart(path string, offset, length int64) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("no input file given")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to %d: %w", offset, err)
		}
	}
	var r io.Reader = f
	if length > 0 {
		r = io.LimitReader(f, length)
	}
	return io.ReadAll(r)
}

func writeFile(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("no output file given")
	}
	return os.WriteFile(path, data, 0o644)
}
