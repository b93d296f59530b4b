package types

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// ComponentID identifies a registered component kind. It doubles as the kind
// tag in serialized world snapshots.
type ComponentID int

// Component is the interface that the user needs to implement to create a new component type.
type Component interface {
	// Name returns the name of the component.
	Name() string
}

// ComponentMetadata wraps the user-defined Component struct and provides the
// functionality used internally by the snapshot machinery.
type ComponentMetadata interface {
	// SetID sets the ComponentID of this component. It must only be set once.
	SetID(ComponentID) error
	// ID returns the ComponentID of the component.
	ID() ComponentID
	// New returns a freshly created default value for the component type.
	New() Component
	// Encode appends the binary encoding of a value of the component type.
	Encode(any) ([]byte, error)
	// Decode decodes a binary encoding produced by Encode.
	Decode([]byte) (any, error)
	GetSchema() []byte

	Component
}

func SerializeComponentSchema(component Component) ([]byte, error) {
	componentSchema := jsonschema.Reflect(component)
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

func IsComponentValid(component Component, jsonSchemaBytes []byte) (bool, error) {
	componentSchemaBytes, err := SerializeComponentSchema(component)
	if err != nil {
		return false, err
	}
	return IsSchemaValid(componentSchemaBytes, jsonSchemaBytes)
}

func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}
