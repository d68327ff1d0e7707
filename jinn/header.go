package jinn

import (
	"encoding/binary"
	"fmt"
)

// headerLength is the fixed size of the file header: 4 bytes magic, 1 byte
// version, 1 byte flags, 8 bytes blockSize, 8 bytes blocks.
const headerLength = 22

const (
	headerVersion      = 1
	flagCompressedBit  = 1 << 0
)

var headerMagic = [4]byte{'j', 'i', 'n', 'n'}

type header struct {
	Version    uint8
	Compressed bool
	BlockSize  uint64
	Blocks     uint64
}

func encodeHeader(h *header) []byte {
	buf := make([]byte, headerLength)
	copy(buf[0:4], headerMagic[:])
	buf[4] = headerVersion
	if h.Compressed {
		buf[5] = flagCompressedBit
	}
	binary.LittleEndian.PutUint64(buf[6:14], h.BlockSize)
	binary.LittleEndian.PutUint64(buf[14:22], h.Blocks)
	return buf
}

func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerLength {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrBadMagic, len(buf))
	}
	if string(buf[0:4]) != string(headerMagic[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, buf[0:4])
	}
	version := buf[4]
	if version != headerVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, version, headerVersion)
	}
	return &header{
		Version:    version,
		Compressed: buf[5]&flagCompressedBit != 0,
		BlockSize:  binary.LittleEndian.Uint64(buf[6:14]),
		Blocks:     binary.LittleEndian.Uint64(buf[14:22]),
	}, nil
}

// readHeader reads and decodes the header from the start of f.
func readHeader(f randomAccessFile) (*header, error) {
	buf := make([]byte, headerLength)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n < headerLength {
		return nil, fmt.Errorf("%w: read header: %w", ErrBadMagic, err)
	}
	return decodeHeader(buf)
}

// writeHeader overwrites bytes 0..headerLength of f.
func writeHeader(f randomAccessFile, h *header) error {
	_, err := f.WriteAt(encodeHeader(h), 0)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}
