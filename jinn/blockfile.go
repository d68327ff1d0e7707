package jinn

import (
	"fmt"
	"os"
)

// randomAccessFile is the subset of *os.File the block file needs. Kept as
// an interface so header/block I/O can be exercised without a real file.
type randomAccessFile interface {
	ReadAt(b []byte, off int64) (int, error)
	WriteAt(b []byte, off int64) (int, error)
	Truncate(size int64) error
	Close() error
}

// blockFile is random-access storage for a dense array of fixed-size
// blocks, each at offset headerLength + i*blockSize. No buffering beyond
// the OS page cache, no file locking: callers serialize access.
type blockFile struct {
	f randomAccessFile
}

func openBlockFile(path string) (*blockFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &blockFile{f: f}, nil
}

func (bf *blockFile) offset(i uint64, blockSize uint64) int64 {
	return int64(headerLength) + int64(i)*int64(blockSize)
}

func (bf *blockFile) readBlock(i uint64, blockSize uint64, buf []byte) error {
	if uint64(len(buf)) != blockSize {
		return fmt.Errorf("%w: read buffer is %d bytes, want %d", ErrInvalidArgument, len(buf), blockSize)
	}
	_, err := bf.f.ReadAt(buf, bf.offset(i, blockSize))
	if err != nil {
		return fmt.Errorf("read block %d: %w", i, err)
	}
	return nil
}

func (bf *blockFile) writeBlock(i uint64, blockSize uint64, buf []byte) error {
	if uint64(len(buf)) != blockSize {
		return fmt.Errorf("%w: write buffer is %d bytes, want %d", ErrInvalidArgument, len(buf), blockSize)
	}
	_, err := bf.f.WriteAt(buf, bf.offset(i, blockSize))
	if err != nil {
		return fmt.Errorf("write block %d: %w", i, err)
	}
	return nil
}

func (bf *blockFile) truncateTo(blocks uint64, blockSize uint64) error {
	size := int64(headerLength) + int64(blocks)*int64(blockSize)
	if err := bf.f.Truncate(size); err != nil {
		return fmt.Errorf("truncate to %d blocks: %w", blocks, err)
	}
	return nil
}

func (bf *blockFile) close() error {
	return bf.f.Close()
}
