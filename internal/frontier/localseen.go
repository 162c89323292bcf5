package frontier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	mmap "github.com/edsrzf/mmap-go"
)

// LocalSeen is a disk-backed bloom filter that shortcuts repeat discovery of
// the same URL within a single worker process, so the durable store only
// sees a genuinely novel URL or a confirmed duplicate at enqueue time. Bloom
// filters have no false negatives, so a "new" verdict always goes to the
// store for the authoritative check; a false positive here merely costs one
// skipped Enqueue call for a URL that was in fact new, which the store-level
// uniqueness constraint tolerates by design.
type LocalSeen struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64
	syncEvery uint64
	lastErr   error
}

// NewLocalSeen creates a disk-backed seen-URL filter sized for expectedURLs
// entries at the given false-positive rate.
func NewLocalSeen(expectedURLs uint, falsePositiveRate float64) (*LocalSeen, error) {
	filter := bloom.NewWithEstimates(expectedURLs, falsePositiveRate)

	tmpFile, err := os.CreateTemp(os.TempDir(), "crawlhive-seen-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("localseen: create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	filterSize := filter.Cap()
	if err := tmpFile.Truncate(int64(filterSize)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("localseen: truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(filterSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("localseen: mmap temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("localseen: marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("localseen: filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &LocalSeen{
		filter:    filter,
		file:      tmpFile,
		mmap:      mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

// VisitIfNew reports whether url had not previously been marked seen, and
// marks it seen either way.
func (s *LocalSeen) VisitIfNew(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestString(url) {
		return false
	}
	s.filter.AddString(url)
	s.count++
	if s.count >= s.syncEvery {
		if err := s.syncLocked(); err != nil {
			s.lastErr = err
		}
	}
	return true
}

func (s *LocalSeen) syncLocked() error {
	data, err := s.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("localseen: marshal bloom filter: %w", err)
	}
	if len(data) <= len(s.mmap) {
		copy(s.mmap, data)
	}
	if err := s.mmap.Flush(); err != nil {
		return fmt.Errorf("localseen: flush mmap: %w", err)
	}
	s.count = 0
	return nil
}

// LastError returns the last error from a periodic background sync.
func (s *LocalSeen) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close flushes pending state and releases the backing file.
func (s *LocalSeen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.lastErr != nil {
		errs = append(errs, s.lastErr)
	}
	if s.mmap != nil {
		if s.count > 0 {
			if err := s.syncLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("localseen: unmap: %w", err))
		}
		s.mmap = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("localseen: close file: %w", err))
		}
		s.file = nil
	}
	if s.tmpPath != "" {
		if err := os.Remove(s.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("localseen: remove temp file: %w", err))
		}
		s.tmpPath = ""
	}
	if len(errs) > 0 {
		return fmt.Errorf("localseen: close: %w", errors.Join(errs...))
	}
	return nil
}
