package snapshot

import (
	"errors"
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/keystone-games/packworld/codec"
	"github.com/keystone-games/packworld/storage"
	"github.com/keystone-games/packworld/types"
)

// WritePopulation serializes the full contents of a store: a u64 entry count
// followed by a (u32 entity id, value) pair per live entry, in dense order.
// An empty store writes nothing at all.
func WritePopulation[T any](w io.Writer, s *storage.Store[T]) error {
	if s.Len() == 0 {
		return nil
	}
	if err := writeUint64(w, uint64(s.Len())); err != nil {
		return err
	}
	return writeEntries(w, s)
}

func writeEntries[T any](w io.Writer, s *storage.Store[T]) error {
	owners := s.Owners()
	dense := s.Dense()
	for i, owner := range owners {
		if err := writeUint32(w, uint32(owner)); err != nil {
			return err
		}
		if err := codec.Encode(w, dense[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadPopulation deserializes a population block into s, creating one slot
// per entry. End of input at the count position is read as an empty
// population, matching the zero bytes an empty store serializes to.
//
// Entries already present in s are not checked for: an id that collides with
// an existing entry rebinds it, per storage.Store.Add.
func ReadPopulation[T any](r io.Reader, s *storage.Store[T]) error {
	count, err := readUint64(r)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if count > math.MaxInt32 {
		return eris.Wrapf(codec.ErrLengthOutOfRange, "%d entries", count)
	}
	return readEntries(r, s, count)
}

func readEntries[T any](r io.Reader, s *storage.Store[T], count uint64) error {
	s.Reserve(s.Len() + int(count))
	for n := uint64(0); n < count; n++ {
		id, err := readUint32(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return eris.Wrap(codec.ErrTruncated, "reading entity id")
			}
			return err
		}
		if err := codec.DecodeInto(r, s.Create(types.EntityID(id))); err != nil {
			return err
		}
	}
	return nil
}

// WriteValue serializes only the value owned by id, with no id or count
// framing. It fails if id has no entry in s.
func WriteValue[T any](w io.Writer, s *storage.Store[T], id types.EntityID) error {
	v := s.Get(id)
	if v == nil {
		return eris.Wrapf(ErrEntityDoesNotExist, "entity %d", id)
	}
	return codec.Encode(w, *v)
}

// ReadValue creates a slot for id in s and decodes one value into it,
// returning the slot. The pointer is valid only until the next call that
// mutates s.
func ReadValue[T any](r io.Reader, s *storage.Store[T], id types.EntityID) (*T, error) {
	v := s.Create(id)
	if err := codec.DecodeInto(r, v); err != nil {
		return nil, err
	}
	return v, nil
}
