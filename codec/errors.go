package codec

import (
	"github.com/rotisserie/eris"
)

var (
	// ErrUnsupportedType is returned by Compile when a type (or one of its
	// members) falls outside the encodable shape set.
	ErrUnsupportedType = eris.New("type cannot be encoded")

	// ErrLengthMismatch is returned when a decoded length prefix does not
	// match the fixed length of the destination array.
	ErrLengthMismatch = eris.New("length prefix does not match fixed array length")

	// ErrLengthOutOfRange is returned when a decoded length prefix is too
	// large to materialize.
	ErrLengthOutOfRange = eris.New("length prefix out of range")

	// ErrTruncated is returned when the input ends before a value is complete.
	ErrTruncated = eris.New("input truncated")

	// ErrValueOutOfRange is returned when a value does not fit the bit width
	// declared for its type.
	ErrValueOutOfRange = eris.New("value does not fit declared bit width")

	// ErrWrongType is returned when a value of the wrong dynamic type is
	// passed to a compiled codec.
	ErrWrongType = eris.New("value type does not match codec type")
)
