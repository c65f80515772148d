package disk

import (
	"io"
	"os"
)

type Reader struct {
	cacheFile  *os.File
	blobReader io.ReadCloser
}

func (entry *Reader) Read(p []byte) (int, error) {
	return entry.blobReader.Read(p)
}

func (entry *Reader) Close() error {
	if err := entry.blobReader.Close(); err != nil {
		return err
	}

	return entry.cacheFile.Close()
}
