package disk

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fgribreau/img-optimizer/internal/cache"
	"github.com/samber/lo"
)

const (
	fileInfo = "info.json"
	fileBlob = "blob.bin"
)

type Disk struct {
	dir        string
	limitBytes uint64
	ttl        time.Duration
	mtx        sync.Mutex
}

func New(dir string, limitBytes uint64, ttl time.Duration) (*Disk, error) {
	disk := &Disk{
		dir:        dir,
		limitBytes: limitBytes,
		ttl:        ttl,
	}

	// Pre-create the disk's directory if not created yet
	if err := os.MkdirAll(dir, 0755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	return disk, nil
}

func (disk *Disk) Get(_ context.Context, key string) (io.ReadCloser, cache.Metadata, error) {
	disk.mtx.Lock()
	defer disk.mtx.Unlock()

	cacheFile, err := os.Open(disk.path(key))
	if err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return nil, cache.Metadata{}, cache.ErrNotFound
		}

		return nil, cache.Metadata{}, fmt.Errorf("failed to open cache entry %q: %w", key, err)
	}

	blobReader, info, err := disk.getInner(cacheFile)
	if err != nil {
		_ = cacheFile.Close()

		return nil, cache.Metadata{}, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	// An entry past its TTL is a miss, remove it lazily
	if info.Metadata.Expired(time.Now()) {
		_ = cacheFile.Close()
		_ = os.Remove(disk.path(key))

		return nil, cache.Metadata{}, cache.ErrNotFound
	}

	return &Reader{
		cacheFile:  cacheFile,
		blobReader: blobReader,
	}, info.Metadata, nil
}

// Put stages the entry in a temporary file and only then renames it into
// place, so concurrent Get()s either see the previous entry or the new
// one, never a torn write.
func (disk *Disk) Put(_ context.Context, key string, contentType string, blobReader io.Reader) error {
	tmpFile, err := os.CreateTemp("", "img-optimizer-put-*")
	if err != nil {
		return fmt.Errorf("failed to create a temporary file for the cache entry %q: %w",
			key, err)
	}

	accepted := false

	defer func() {
		if !accepted {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if err := disk.writeEntry(tmpFile, key, contentType, blobReader); err != nil {
		_ = tmpFile.Close()

		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close cache entry %q: %w", key, err)
	}

	if err := disk.accept(key, tmpFile.Name()); err != nil {
		return fmt.Errorf("failed to accept cache entry %q: %w", key, err)
	}

	accepted = true

	return nil
}

func (disk *Disk) writeEntry(tmpFile *os.File, key string, contentType string, blobReader io.Reader) error {
	zipWriter := zip.NewWriter(tmpFile)

	if err := writeInfo(zipWriter, Info{
		Key: key,
		Metadata: cache.Metadata{
			ContentType: contentType,
			CreatedAt:   time.Now(),
			TTL:         disk.ttl,
		},
	}); err != nil {
		return err
	}

	// The blob is stored uncompressed: encoded images don't deflate
	blobWriter, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:   fileBlob,
		Method: zip.Store,
	})
	if err != nil {
		return err
	}

	if _, err := io.Copy(blobWriter, blobReader); err != nil {
		return err
	}

	return zipWriter.Close()
}

// EvictExpired removes entries past their TTL. Expired entries are first
// collected under the lock and then removed one by one, so unrelated
// Get()s are never blocked for the whole sweep.
func (disk *Disk) EvictExpired(_ context.Context) error {
	dirEntries, err := os.ReadDir(disk.dir)
	if err != nil {
		return err
	}

	now := time.Now()

	for _, dirEntry := range dirEntries {
		path := filepath.Join(disk.dir, dirEntry.Name())

		expired, err := disk.entryExpired(path, now)
		if err != nil {
			// A concurrent Put() may have replaced the entry mid-sweep
			continue
		}

		if expired {
			disk.mtx.Lock()
			_ = os.Remove(path)
			disk.mtx.Unlock()
		}
	}

	return nil
}

func (disk *Disk) Delete(key string) error {
	disk.mtx.Lock()
	defer disk.mtx.Unlock()

	if err := os.Remove(disk.path(key)); err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return cache.ErrNotFound
		}

		return err
	}

	return nil
}

func (disk *Disk) path(key string) string {
	// Hash the key so arbitrary key lengths never exceed filename limits
	hash := sha256.Sum256([]byte(key))

	return filepath.Join(disk.dir, hex.EncodeToString(hash[:]))
}

func (disk *Disk) entryExpired(path string, now time.Time) (bool, error) {
	cacheFile, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = cacheFile.Close()
	}()

	blobReader, info, err := disk.getInner(cacheFile)
	if err != nil {
		return false, err
	}
	_ = blobReader.Close()

	return info.Metadata.Expired(now), nil
}

func (disk *Disk) getInner(cacheFile *os.File) (io.ReadCloser, Info, error) {
	// Open the cache entry as a ZIP file
	fi, err := cacheFile.Stat()
	if err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return nil, Info{}, cache.ErrNotFound
		}

		return nil, Info{}, fmt.Errorf("stat(2) failed: %w", err)
	}

	zipReader, err := zip.NewReader(cacheFile, fi.Size())
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to open as a ZIP file: %w", err)
	}

	// Read cache entry's info
	info, err := readInfo(zipReader)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to read from ZIP file: %w", err)
	}

	// Acquire a handle to the cache entry's underlying blob
	blobReader, err := zipReader.Open(fileBlob)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to read from ZIP file: %w", err)
	}

	return blobReader, *info, nil
}

func (disk *Disk) accept(key string, path string) error {
	disk.mtx.Lock()
	defer disk.mtx.Unlock()

	// Prepare for accepting the new cache entry
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	if err := disk.evict(uint64(fi.Size())); err != nil {
		return err
	}

	// Accept new cache entry
	return os.Rename(path, disk.path(key))
}

func (disk *Disk) evict(needBytes uint64) error {
	// Does it even make sense to evict anything?
	if needBytes > disk.limitBytes {
		return fmt.Errorf("cannot accept cache entry as it's size of %d bytes"+
			" is larger than the disk limit of %d bytes", needBytes, disk.limitBytes)
	}

	// Collect a slice of cache entries, sorted by modification time, ascending order
	type Entry struct {
		Name    string
		Size    uint64
		ModTime time.Time
	}

	var entries []*Entry

	dirEntries, err := os.ReadDir(disk.dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		fi, err := entry.Info()
		if err != nil {
			return err
		}

		entries = append(entries, &Entry{
			Name:    entry.Name(),
			Size:    uint64(fi.Size()),
			ModTime: fi.ModTime(),
		})
	}

	slices.SortFunc(entries, func(a, b *Entry) int {
		return a.ModTime.Compare(b.ModTime)
	})

	usedBytes := lo.SumBy(entries, func(entry *Entry) uint64 {
		return entry.Size
	})

	// Evict the oldest entries to fit the new entry
	for _, entry := range entries {
		if (usedBytes + needBytes) <= disk.limitBytes {
			return nil
		}

		if err := os.Remove(filepath.Join(disk.dir, entry.Name)); err != nil {
			return err
		}

		usedBytes -= entry.Size
	}

	return nil
}
