package codec_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/keystone-games/packworld/codec"
)

type Rarity uint8

func (Rarity) EnumBits() int { return 3 }

type Element int16

func (Element) EnumBits() int { return 12 }

type Permissions uint32

func (Permissions) EnumBits() int { return 17 }

type WideFlag uint64

func (WideFlag) EnumBits() int { return 64 }

type Position struct {
	X float32
	Y float32
	Z float32
}

type Inventory struct {
	Slots    [4]uint16
	Extra    []uint32
	Label    string
	Equipped bool
}

type Player struct {
	Health    int32
	Pos       Position
	Inv       Inventory
	Rarity    Rarity
	Seed      uint64
	Modifiers []float64
}

type Tree struct {
	Value    uint8
	Children []Tree
}

// PackedVec replaces the structural encoding with its own layout: Y before X.
type PackedVec struct {
	X float32
	Y float32
}

func (p *PackedVec) EncodeSelf(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, p.Y); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, p.X)
}

func (p *PackedVec) DecodeSelf(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &p.Y); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, &p.X)
}

// HalfBaked implements only one half of the override pair.
type HalfBaked struct {
	N uint8
}

func (h *HalfBaked) EncodeSelf(io.Writer) error { return nil }

func roundTrip[T any](t *testing.T, v T) {
	t.Helper()
	var buf bytes.Buffer
	assert.NilError(t, codec.Encode(&buf, v))
	got, err := codec.Decode[T](&buf)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, v)
	assert.Equal(t, buf.Len(), 0, "decode must consume every encoded byte")
}

func TestRoundTripPrimitives(t *testing.T) {
	roundTrip(t, true)
	roundTrip(t, false)
	roundTrip(t, int8(-100))
	roundTrip(t, int16(-30000))
	roundTrip(t, int32(math.MinInt32))
	roundTrip(t, int64(math.MaxInt64))
	roundTrip(t, uint8(255))
	roundTrip(t, uint16(65535))
	roundTrip(t, uint32(math.MaxUint32))
	roundTrip(t, uint64(math.MaxUint64))
	roundTrip(t, float32(3.5))
	roundTrip(t, float64(-1e300))
	roundTrip(t, math.Inf(1))
	roundTrip(t, "hello, 世界")
	roundTrip(t, "")
}

func TestRoundTripEnums(t *testing.T) {
	roundTrip(t, Rarity(5))
	roundTrip(t, Element(2000))
	roundTrip(t, Element(-2000))
	roundTrip(t, Permissions(1<<17-1))
	roundTrip(t, WideFlag(math.MaxUint64))
}

func TestRoundTripComposites(t *testing.T) {
	roundTrip(t, [3]int16{-1, 0, 1})
	roundTrip(t, []uint32(nil))
	roundTrip(t, []uint32{7, 8, 9})
	roundTrip(t, [2][2]uint8{{1, 2}, {3, 4}})
	roundTrip(t, [][]bool{{true}, {false, true}})
	roundTrip(t, Player{
		Health: -50,
		Pos:    Position{X: 1.5, Y: -2.25, Z: 0},
		Inv: Inventory{
			Slots:    [4]uint16{10, 20, 30, 40},
			Extra:    []uint32{99},
			Label:    "backpack",
			Equipped: true,
		},
		Rarity:    3,
		Seed:      0xDEADBEEF,
		Modifiers: []float64{0.5, 0.25},
	})
}

// Nil and empty slices share the length-0 encoding; decoding always yields
// nil, including for slices nested inside structs.
func TestZeroLengthSliceDecodesToNil(t *testing.T) {
	for _, in := range [][]uint32{nil, {}} {
		bz, err := codec.Marshal(in)
		assert.NilError(t, err)
		assert.DeepEqual(t, bz, make([]byte, 8))
		out, err := codec.Unmarshal[[]uint32](bz)
		assert.NilError(t, err)
		assert.Assert(t, out == nil)
	}

	bz, err := codec.Marshal(Tree{Value: 9, Children: []Tree{}})
	assert.NilError(t, err)
	got, err := codec.Unmarshal[Tree](bz)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, Tree{Value: 9})
}

func TestRoundTripRecursiveType(t *testing.T) {
	roundTrip(t, Tree{
		Value: 1,
		Children: []Tree{
			{Value: 2},
			{Value: 3, Children: []Tree{{Value: 4}}},
		},
	})
}

func TestRoundTripCustomOverride(t *testing.T) {
	roundTrip(t, PackedVec{X: 1, Y: 2})
}

func TestCustomOverrideControlsLayout(t *testing.T) {
	bz, err := codec.Marshal(PackedVec{X: 1, Y: 2})
	assert.NilError(t, err)
	want := make([]byte, 8)
	binary.LittleEndian.PutUint32(want[0:], math.Float32bits(2)) // Y first
	binary.LittleEndian.PutUint32(want[4:], math.Float32bits(1))
	assert.DeepEqual(t, bz, want)
}

func TestWireLayout(t *testing.T) {
	testCases := []struct {
		name  string
		value any
		want  []byte
	}{
		{"bool true", true, []byte{1}},
		{"bool false", false, []byte{0}},
		{"uint16", uint16(0x1234), []byte{0x34, 0x12}},
		{"int32 negative", int32(-2), []byte{0xFE, 0xFF, 0xFF, 0xFF}},
		{"float32 one", float32(1.0), []byte{0x00, 0x00, 0x80, 0x3F}},
		{"enum 12 bits", Element(513), []byte{0x01, 0x02}},
		{"array", [2]uint8{7, 9}, []byte{2, 0, 0, 0, 0, 0, 0, 0, 7, 9}},
		{"slice", []uint16{0x0102}, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0x02, 0x01}},
		{"string", "ab", []byte{2, 0, 0, 0, 0, 0, 0, 0, 'a', 'b'}},
		{
			"struct fields concatenated in order",
			struct {
				A uint8
				B uint16
			}{A: 1, B: 0x0203},
			[]byte{1, 0x03, 0x02},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bz, err := codec.Marshal(tc.value)
			assert.NilError(t, err)
			assert.DeepEqual(t, bz, tc.want)
		})
	}
}

func TestEnumWidthIsCeilOfBits(t *testing.T) {
	testCases := []struct {
		name      string
		value     any
		wantBytes int
	}{
		{"3 bits", Rarity(1), 1},
		{"12 bits", Element(1), 2},
		{"17 bits", Permissions(1), 3},
		{"64 bits", WideFlag(1), 8},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bz, err := codec.Marshal(tc.value)
			assert.NilError(t, err)
			assert.Equal(t, len(bz), tc.wantBytes)
		})
	}
}

func TestEnumValueMustFitDeclaredBits(t *testing.T) {
	var buf bytes.Buffer
	err := codec.Encode(&buf, Rarity(8)) // 3 bits hold 0..7
	assert.ErrorIs(t, err, codec.ErrValueOutOfRange)

	err = codec.Encode(&buf, Element(2048)) // 12 signed bits hold -2048..2047
	assert.ErrorIs(t, err, codec.ErrValueOutOfRange)

	assert.NilError(t, codec.Encode(&buf, Element(-2048)))
}

func TestDefinitionErrors(t *testing.T) {
	testCases := []struct {
		name string
		typ  reflect.Type
	}{
		{"map", reflect.TypeOf(map[string]int32{})},
		{"pointer", reflect.TypeOf((*int32)(nil))},
		{"chan", reflect.TypeOf(make(chan int))},
		{"func", reflect.TypeOf(func() {})},
		{"platform int", reflect.TypeOf(int(0))},
		{"platform uint", reflect.TypeOf(uint(0))},
		{"uintptr", reflect.TypeOf(uintptr(0))},
		{"unexported field", reflect.TypeOf(struct{ hidden int32 }{})},
		{"nested unsupported", reflect.TypeOf(struct{ M map[int32]int32 }{})},
		{"slice of unsupported", reflect.TypeOf([]map[int32]int32{})},
		{"half override pair", reflect.TypeOf(HalfBaked{})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Compile(tc.typ)
			assert.ErrorIs(t, err, codec.ErrUnsupportedType)
		})
	}
}

func TestDefinitionErrorHappensBeforeAnyValueFlows(t *testing.T) {
	var buf bytes.Buffer
	err := codec.Encode(&buf, struct{ M map[int32]int32 }{})
	assert.ErrorIs(t, err, codec.ErrUnsupportedType)
	assert.Equal(t, buf.Len(), 0)
}

func TestDecodeTruncatedInput(t *testing.T) {
	bz, err := codec.Marshal(Player{Modifiers: []float64{1, 2, 3}})
	assert.NilError(t, err)
	for _, cut := range []int{0, 1, len(bz) / 2, len(bz) - 1} {
		_, err := codec.Unmarshal[Player](bz[:cut])
		assert.ErrorIs(t, err, codec.ErrTruncated)
	}
}

func TestDecodeArrayLengthMismatch(t *testing.T) {
	bz, err := codec.Marshal([2]uint8{1, 2})
	assert.NilError(t, err)
	binary.LittleEndian.PutUint64(bz[:8], 3)
	_, err = codec.Unmarshal[[2]uint8](bz)
	assert.ErrorIs(t, err, codec.ErrLengthMismatch)
}

func TestDecodeRejectsAbsurdSequenceLength(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, binary.Write(&buf, binary.LittleEndian, uint64(math.MaxUint64)))
	_, err := codec.Decode[[]uint8](&buf)
	assert.ErrorIs(t, err, codec.ErrLengthOutOfRange)
}

func TestCodecRejectsWrongDynamicType(t *testing.T) {
	c, err := codec.For[uint32]()
	assert.NilError(t, err)
	var buf bytes.Buffer
	assert.ErrorIs(t, c.Encode(&buf, int32(1)), codec.ErrWrongType)
	var out uint16
	assert.ErrorIs(t, c.Decode(&buf, &out), codec.ErrWrongType)
}

func TestMarshalUnmarshal(t *testing.T) {
	want := Position{X: 4, Y: 5, Z: 6}
	bz, err := codec.Marshal(want)
	assert.NilError(t, err)
	assert.Equal(t, len(bz), 12)
	got, err := codec.Unmarshal[Position](bz)
	assert.NilError(t, err)
	assert.Equal(t, got, want)
}
