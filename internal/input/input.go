// Package input opens databank source files, decompressing gzip files on the
// fly.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// readerSize is the buffer size between the file and the decompressor.
const readerSize = 1 << 20

// File is an open source file. Close releases the decompressor and the
// underlying file.
type File struct {
	io.Reader
	path string
	f    *os.File
	gz   *gzip.Reader
}

// Open opens path for reading. Files ending in .gz are decompressed.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	file := &File{path: path, f: f, Reader: bufio.NewReaderSize(f, readerSize)}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}

	gz, err := gzip.NewReader(file.Reader)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading gzip header of %s: %w", path, err)
	}
	file.gz = gz
	file.Reader = gz
	return file, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.path
}

func (f *File) Close() error {
	var gzErr error
	if f.gz != nil {
		gzErr = f.gz.Close()
	}
	if err := f.f.Close(); err != nil {
		return err
	}
	return gzErr
}
