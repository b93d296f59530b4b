package component

import (
	"bytes"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"

	"github.com/keystone-games/packworld/codec"
	"github.com/keystone-games/packworld/types"
)

// Interface guard
var _ types.ComponentMetadata = (*componentMetadata[types.Component])(nil)

// Option is a type that can be passed to NewComponentMetadata to augment the
// creation of the component type.
type Option[T types.Component] func(c *componentMetadata[T])

// WithDefault sets the value returned by New for the component type.
func WithDefault[T types.Component](defaultVal T) Option[T] {
	return func(c *componentMetadata[T]) {
		c.defaultVal = &defaultVal
	}
}

// componentMetadata represents a type of component. It is used to identify
// a component kind when storing or serializing per-entity values.
type componentMetadata[T types.Component] struct {
	isIDSet    bool
	id         types.ComponentID
	compType   reflect.Type
	name       string
	schema     []byte
	codec      *codec.Codec
	defaultVal *T
}

// NewComponentMetadata creates the metadata for component type T. The binary
// shape of T is compiled here, so an unsupported member shape fails at
// definition time, before any value is ever processed.
func NewComponentMetadata[T types.Component](opts ...Option[T]) (
	types.ComponentMetadata, error,
) {
	var t T
	compType := reflect.TypeOf(t)

	schema, err := jsonschema.ReflectFromType(compType).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}

	compCodec, err := codec.ForType(compType)
	if err != nil {
		return nil, err
	}

	compMetadata := &componentMetadata[T]{
		compType: compType,
		name:     t.Name(),
		schema:   schema,
		codec:    compCodec,
	}
	for _, opt := range opts {
		opt(compMetadata)
	}

	return compMetadata, nil
}

func (c *componentMetadata[T]) GetSchema() []byte {
	return c.schema
}

// SetID set's this component's ID. It must be unique across the world object.
func (c *componentMetadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// Components are usually registered once, on startup. In tests it is
		// useful to register the same component into multiple worlds, so
		// re-setting the same ID is allowed.
		if id == c.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", c, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

// String returns the component type name.
func (c *componentMetadata[T]) String() string {
	return c.name
}

// Name returns the component type name.
func (c *componentMetadata[T]) Name() string {
	return c.name
}

// ID returns the component type id.
func (c *componentMetadata[T]) ID() types.ComponentID {
	return c.id
}

// New returns the default value for the component type.
func (c *componentMetadata[T]) New() types.Component {
	if c.defaultVal != nil {
		return *c.defaultVal
	}
	var t T
	return t
}

func (c *componentMetadata[T]) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.codec.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *componentMetadata[T]) Decode(bz []byte) (any, error) {
	comp := new(T)
	if err := c.codec.Decode(bytes.NewReader(bz), comp); err != nil {
		return nil, err
	}
	return *comp, nil
}
