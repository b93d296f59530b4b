// Package codec implements a compact little-endian binary encoding for
// statically-shaped values. The encoding is derived from the structure of the
// concrete type: booleans are one byte, integers and floats are their exact
// declared width, arrays and slices are a u64 length followed by their
// elements, and structs are the concatenation of their fields in declaration
// order. No field names, tags, or type information appear on the wire. Nil
// and empty slices are indistinguishable on the wire; a length of zero
// decodes to a nil slice.
//
// The shape of a type is resolved once, by Compile, before any value flows
// through it. Types outside the supported shape set (maps, pointers,
// channels, funcs, interfaces, platform-width integers, structs with
// unexported fields) are rejected at that point.
//
// A type can take over its own byte layout entirely by implementing both
// SelfEncoder and SelfDecoder; the structural traversal then never inspects
// its fields. A named integer type can declare a backing bit width by
// implementing Enum, in which case it occupies ceil(bits/8) bytes.
package codec

import (
	"bytes"
	"io"
	"reflect"
	"sync"

	"github.com/rotisserie/eris"
)

// SelfEncoder is implemented by types that replace the structural encoding
// with their own byte layout. Implementations must be paired with SelfDecoder.
type SelfEncoder interface {
	EncodeSelf(w io.Writer) error
}

// SelfDecoder is the decoding half of the SelfEncoder contract. DecodeSelf
// must consume exactly the bytes written by EncodeSelf.
type SelfDecoder interface {
	DecodeSelf(r io.Reader) error
}

// Enum is implemented by named integer types backed by an arbitrary bit
// width. EnumBits must be declared on the value receiver and return a
// constant in [1, 64]; the value then occupies ceil(EnumBits()/8) bytes on
// the wire.
type Enum interface {
	EnumBits() int
}

// Codec is the compiled encoder/decoder for one concrete type. A Codec is
// stateless after compilation and may be shared freely.
type Codec struct {
	typ  reflect.Type
	prog *program
}

// Compile resolves the shape of t and returns its codec. It fails if t or any
// of its members is not encodable.
func Compile(t reflect.Type) (*Codec, error) {
	if t == nil {
		return nil, eris.Wrap(ErrUnsupportedType, "nil type")
	}
	c := newCompiler()
	prog, err := c.compile(t)
	if err != nil {
		return nil, err
	}
	return &Codec{typ: t, prog: prog}, nil
}

var codecCache sync.Map // reflect.Type -> *Codec

// ForType returns the codec for t, compiling it on first use.
func ForType(t reflect.Type) (*Codec, error) {
	if cached, ok := codecCache.Load(t); ok {
		return cached.(*Codec), nil
	}
	c, err := Compile(t)
	if err != nil {
		return nil, err
	}
	cached, _ := codecCache.LoadOrStore(t, c)
	return cached.(*Codec), nil
}

// For returns the codec for the type parameter T, compiling it on first use.
func For[T any]() (*Codec, error) {
	var zero T
	return ForType(reflect.TypeOf(zero))
}

// Type returns the concrete type this codec was compiled for.
func (c *Codec) Type() reflect.Type {
	return c.typ
}

// Encode writes the binary encoding of v, which must be of the codec's type.
func (c *Codec) Encode(w io.Writer, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Type() != c.typ {
		return eris.Wrapf(ErrWrongType, "have %T, want %v", v, c.typ)
	}
	return c.prog.enc(w, rv)
}

// Decode reads one value into out, which must be a non-nil pointer to the
// codec's type. On failure the destination must be treated as not
// constructed.
func (c *Codec) Decode(r io.Reader, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Type().Elem() != c.typ {
		return eris.Wrapf(ErrWrongType, "have %T, want *%v", out, c.typ)
	}
	return c.prog.dec(r, rv.Elem())
}

// Encode writes the binary encoding of v to w.
func Encode[T any](w io.Writer, v T) error {
	c, err := For[T]()
	if err != nil {
		return err
	}
	return c.prog.enc(w, reflect.ValueOf(v))
}

// Decode reads one value of type T from r.
func Decode[T any](r io.Reader) (T, error) {
	var out T
	err := DecodeInto(r, &out)
	return out, err
}

// DecodeInto reads one value of type T from r into out.
func DecodeInto[T any](r io.Reader, out *T) error {
	c, err := For[T]()
	if err != nil {
		return err
	}
	return c.prog.dec(r, reflect.ValueOf(out).Elem())
}

// Marshal returns the binary encoding of v as a byte slice.
func Marshal(v any) ([]byte, error) {
	c, err := ForType(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one value of type T from bz.
func Unmarshal[T any](bz []byte) (T, error) {
	return Decode[T](bytes.NewReader(bz))
}
