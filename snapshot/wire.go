package snapshot

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/keystone-games/packworld/codec"
)

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return eris.Wrap(err, "")
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return eris.Wrap(err, "")
}

// readUint32 returns io.EOF unchanged when the input is exhausted at a value
// boundary, so framing loops can detect a clean end of stream.
func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, eris.Wrap(codec.ErrTruncated, "reading u32")
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readUint64 has the same clean-EOF contract as readUint32.
func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, eris.Wrap(codec.ErrTruncated, "reading u64")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
