package codec

import (
	"errors"
	"io"
	"math"
	"reflect"

	"github.com/rotisserie/eris"
)

type encoderFunc func(w io.Writer, v reflect.Value) error

type decoderFunc func(r io.Reader, v reflect.Value) error

// program holds the compiled encode/decode pair for one type. Composite
// programs reference their element programs by pointer so that recursive
// types resolve to the finished program.
type program struct {
	enc encoderFunc
	dec decoderFunc
}

type compiler struct {
	inProgress map[reflect.Type]*program
}

func newCompiler() *compiler {
	return &compiler{inProgress: map[reflect.Type]*program{}}
}

var (
	selfEncoderType = reflect.TypeOf((*SelfEncoder)(nil)).Elem()
	selfDecoderType = reflect.TypeOf((*SelfDecoder)(nil)).Elem()
	enumType        = reflect.TypeOf((*Enum)(nil)).Elem()
)

func (c *compiler) compile(t reflect.Type) (*program, error) {
	if p, ok := c.inProgress[t]; ok {
		return p, nil
	}
	p := &program{}
	c.inProgress[t] = p
	enc, dec, err := c.compileType(t)
	if err != nil {
		delete(c.inProgress, t)
		return nil, err
	}
	p.enc, p.dec = enc, dec
	return p, nil
}

func (c *compiler) compileType(t reflect.Type) (encoderFunc, decoderFunc, error) {
	hasEnc := reflect.PointerTo(t).Implements(selfEncoderType)
	hasDec := reflect.PointerTo(t).Implements(selfDecoderType)
	if hasEnc != hasDec {
		return nil, nil, eris.Wrapf(ErrUnsupportedType,
			"%v implements only one half of the SelfEncoder/SelfDecoder pair", t)
	}
	if hasEnc {
		return compileOverride(t)
	}
	if t.Implements(enumType) && isInteger(t.Kind()) {
		return compileEnum(t)
	}

	switch t.Kind() {
	case reflect.Bool:
		return compileBool()
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return compileInt(t, true)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return compileInt(t, false)
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return nil, nil, eris.Wrapf(ErrUnsupportedType,
			"%v has a platform-dependent width, declare a fixed-width integer", t)
	case reflect.Float32, reflect.Float64:
		return compileFloat(t)
	case reflect.Array:
		return c.compileArray(t)
	case reflect.Slice:
		return c.compileSlice(t)
	case reflect.String:
		return compileString()
	case reflect.Struct:
		return c.compileStruct(t)
	default:
		return nil, nil, eris.Wrapf(ErrUnsupportedType, "%v (kind %v)", t, t.Kind())
	}
}

func compileOverride(t reflect.Type) (encoderFunc, decoderFunc, error) {
	enc := func(w io.Writer, v reflect.Value) error {
		if !v.CanAddr() {
			tmp := reflect.New(t)
			tmp.Elem().Set(v)
			v = tmp.Elem()
		}
		return v.Addr().Interface().(SelfEncoder).EncodeSelf(w)
	}
	dec := func(r io.Reader, v reflect.Value) error {
		return v.Addr().Interface().(SelfDecoder).DecodeSelf(r)
	}
	return enc, dec, nil
}

func compileEnum(t reflect.Type) (encoderFunc, decoderFunc, error) {
	bits := reflect.Zero(t).Interface().(Enum).EnumBits()
	if bits < 1 || bits > 64 {
		return nil, nil, eris.Wrapf(ErrUnsupportedType,
			"%v declares a backing width of %d bits, want 1..64", t, bits)
	}
	width := (bits + 7) / 8
	signed := isSignedInteger(t.Kind())

	enc := func(w io.Writer, v reflect.Value) error {
		var raw uint64
		if signed {
			i := v.Int()
			if bits < 64 {
				limit := int64(1) << (bits - 1)
				if i < -limit || i >= limit {
					return eris.Wrapf(ErrValueOutOfRange, "%d in %d bits", i, bits)
				}
			}
			raw = uint64(i)
		} else {
			raw = v.Uint()
			if bits < 64 && raw >= uint64(1)<<bits {
				return eris.Wrapf(ErrValueOutOfRange, "%d in %d bits", raw, bits)
			}
		}
		return writeUintLE(w, raw, width)
	}
	dec := func(r io.Reader, v reflect.Value) error {
		raw, err := readUintLE(r, width)
		if err != nil {
			return err
		}
		if signed {
			i := signExtend(raw, width*8)
			if v.OverflowInt(i) {
				return eris.Wrapf(ErrValueOutOfRange, "%d overflows %v", i, t)
			}
			v.SetInt(i)
			return nil
		}
		if v.OverflowUint(raw) {
			return eris.Wrapf(ErrValueOutOfRange, "%d overflows %v", raw, t)
		}
		v.SetUint(raw)
		return nil
	}
	return enc, dec, nil
}

func compileBool() (encoderFunc, decoderFunc, error) {
	enc := func(w io.Writer, v reflect.Value) error {
		b := byte(0)
		if v.Bool() {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return eris.Wrap(err, "")
	}
	dec := func(r io.Reader, v reflect.Value) error {
		var buf [1]byte
		if err := readFull(r, buf[:]); err != nil {
			return err
		}
		v.SetBool(buf[0] != 0)
		return nil
	}
	return enc, dec, nil
}

func compileInt(t reflect.Type, signed bool) (encoderFunc, decoderFunc, error) {
	width := int(t.Size())
	enc := func(w io.Writer, v reflect.Value) error {
		var raw uint64
		if signed {
			raw = uint64(v.Int())
		} else {
			raw = v.Uint()
		}
		return writeUintLE(w, raw, width)
	}
	dec := func(r io.Reader, v reflect.Value) error {
		raw, err := readUintLE(r, width)
		if err != nil {
			return err
		}
		if signed {
			v.SetInt(signExtend(raw, width*8))
		} else {
			v.SetUint(raw)
		}
		return nil
	}
	return enc, dec, nil
}

func compileFloat(t reflect.Type) (encoderFunc, decoderFunc, error) {
	if t.Kind() == reflect.Float32 {
		enc := func(w io.Writer, v reflect.Value) error {
			return writeUintLE(w, uint64(math.Float32bits(float32(v.Float()))), 4)
		}
		dec := func(r io.Reader, v reflect.Value) error {
			raw, err := readUintLE(r, 4)
			if err != nil {
				return err
			}
			v.SetFloat(float64(math.Float32frombits(uint32(raw))))
			return nil
		}
		return enc, dec, nil
	}
	enc := func(w io.Writer, v reflect.Value) error {
		return writeUintLE(w, math.Float64bits(v.Float()), 8)
	}
	dec := func(r io.Reader, v reflect.Value) error {
		raw, err := readUintLE(r, 8)
		if err != nil {
			return err
		}
		v.SetFloat(math.Float64frombits(raw))
		return nil
	}
	return enc, dec, nil
}

func (c *compiler) compileArray(t reflect.Type) (encoderFunc, decoderFunc, error) {
	elem, err := c.compile(t.Elem())
	if err != nil {
		return nil, nil, err
	}
	n := t.Len()
	enc := func(w io.Writer, v reflect.Value) error {
		if err := writeUintLE(w, uint64(n), 8); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem.enc(w, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	dec := func(r io.Reader, v reflect.Value) error {
		ln, err := readUintLE(r, 8)
		if err != nil {
			return err
		}
		if ln != uint64(n) {
			return eris.Wrapf(ErrLengthMismatch, "have %d, want %d", ln, n)
		}
		for i := 0; i < n; i++ {
			if err := elem.dec(r, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return enc, dec, nil
}

func (c *compiler) compileSlice(t reflect.Type) (encoderFunc, decoderFunc, error) {
	elem, err := c.compile(t.Elem())
	if err != nil {
		return nil, nil, err
	}
	enc := func(w io.Writer, v reflect.Value) error {
		n := v.Len()
		if err := writeUintLE(w, uint64(n), 8); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := elem.enc(w, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	dec := func(r io.Reader, v reflect.Value) error {
		ln, err := readUintLE(r, 8)
		if err != nil {
			return err
		}
		if ln > math.MaxInt32 {
			return eris.Wrapf(ErrLengthOutOfRange, "%d elements", ln)
		}
		n := int(ln)
		// Nil and empty slices share the length-0 encoding. Length 0
		// always decodes to nil.
		if n == 0 {
			v.Set(reflect.Zero(t))
			return nil
		}
		s := reflect.MakeSlice(t, n, n)
		for i := 0; i < n; i++ {
			if err := elem.dec(r, s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	}
	return enc, dec, nil
}

func compileString() (encoderFunc, decoderFunc, error) {
	enc := func(w io.Writer, v reflect.Value) error {
		s := v.String()
		if err := writeUintLE(w, uint64(len(s)), 8); err != nil {
			return err
		}
		_, err := io.WriteString(w, s)
		return eris.Wrap(err, "")
	}
	dec := func(r io.Reader, v reflect.Value) error {
		ln, err := readUintLE(r, 8)
		if err != nil {
			return err
		}
		if ln > math.MaxInt32 {
			return eris.Wrapf(ErrLengthOutOfRange, "%d bytes", ln)
		}
		buf := make([]byte, int(ln))
		if err := readFull(r, buf); err != nil {
			return err
		}
		v.SetString(string(buf))
		return nil
	}
	return enc, dec, nil
}

func (c *compiler) compileStruct(t reflect.Type) (encoderFunc, decoderFunc, error) {
	numField := t.NumField()
	fields := make([]*program, 0, numField)
	for i := 0; i < numField; i++ {
		f := t.Field(i)
		if !f.IsExported() {
			return nil, nil, eris.Wrapf(ErrUnsupportedType,
				"%v has unexported field %q", t, f.Name)
		}
		p, err := c.compile(f.Type)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "field %v.%s", t, f.Name)
		}
		fields = append(fields, p)
	}
	enc := func(w io.Writer, v reflect.Value) error {
		for i, p := range fields {
			if err := p.enc(w, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}
	dec := func(r io.Reader, v reflect.Value) error {
		for i, p := range fields {
			if err := p.dec(r, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return enc, dec, nil
}

func isInteger(k reflect.Kind) bool {
	return isSignedInteger(k) ||
		k == reflect.Uint8 || k == reflect.Uint16 || k == reflect.Uint32 || k == reflect.Uint64
}

func isSignedInteger(k reflect.Kind) bool {
	return k == reflect.Int8 || k == reflect.Int16 || k == reflect.Int32 || k == reflect.Int64
}

// signExtend interprets the low `bits` bits of raw as a two's-complement
// signed integer.
func signExtend(raw uint64, bits int) int64 {
	shift := 64 - bits
	return int64(raw<<shift) >> shift
}

func writeUintLE(w io.Writer, raw uint64, width int) error {
	var buf [8]byte
	for i := 0; i < width; i++ {
		buf[i] = byte(raw >> (8 * i))
	}
	_, err := w.Write(buf[:width])
	return eris.Wrap(err, "")
}

func readUintLE(r io.Reader, width int) (uint64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:width]); err != nil {
		return 0, err
	}
	var raw uint64
	for i := 0; i < width; i++ {
		raw |= uint64(buf[i]) << (8 * i)
	}
	return raw, nil
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return eris.Wrapf(ErrTruncated, "want %d bytes", len(buf))
		}
		return eris.Wrap(err, "")
	}
	return nil
}
