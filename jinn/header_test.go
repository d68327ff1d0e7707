package jinn

import (
	"errors"
	"testing"

	. "github.com/fulldump/biff"
)

func TestHeader_RoundTrip(t *testing.T) {
	h := &header{Version: headerVersion, Compressed: true, BlockSize: 512, Blocks: 7}
	buf := encodeHeader(h)
	AssertEqual(len(buf), headerLength)

	got, err := decodeHeader(buf)
	AssertNil(err)
	AssertEqual(got.Version, h.Version)
	AssertEqual(got.Compressed, h.Compressed)
	AssertEqual(got.BlockSize, h.BlockSize)
	AssertEqual(got.Blocks, h.Blocks)
}

func TestHeader_BadMagic(t *testing.T) {
	buf := make([]byte, headerLength)
	copy(buf, "nope")
	_, err := decodeHeader(buf)
	AssertNotNil(err)
	AssertTrue(errors.Is(err, ErrBadMagic))
}

func TestHeader_UnsupportedVersion(t *testing.T) {
	h := &header{Version: 99, BlockSize: 1, Blocks: 0}
	buf := encodeHeader(h)
	copy(buf[0:4], headerMagic[:])
	buf[4] = 99
	_, err := decodeHeader(buf)
	AssertNotNil(err)
	AssertTrue(errors.Is(err, ErrUnsupportedVersion))
}
