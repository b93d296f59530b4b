package snapshot

import (
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/keystone-games/packworld/types"
)

type jsonRawMessage = json.RawMessage

func (k *kind[T]) debugComponents(out map[types.EntityID]map[string]jsonRawMessage) error {
	owners := k.store.Owners()
	dense := k.store.Dense()
	for i, owner := range owners {
		bz, err := json.Marshal(dense[i])
		if err != nil {
			return eris.Wrapf(err, "component %q is not json serializable", k.Name())
		}
		components, ok := out[owner]
		if !ok {
			components = map[string]jsonRawMessage{}
			out[owner] = components
		}
		components[k.Name()] = bz
	}
	return nil
}

// DebugState returns a JSON-friendly view of the whole world: every live
// entity with its component values keyed by component name, ordered by
// entity id.
func (w *World) DebugState() (types.DebugStateResponse, error) {
	byEntity := map[types.EntityID]map[string]jsonRawMessage{}
	for _, k := range w.kinds {
		if err := k.debugComponents(byEntity); err != nil {
			return nil, err
		}
	}
	state := make(types.DebugStateResponse, 0, len(byEntity))
	for id, components := range byEntity {
		state = append(state, types.DebugStateElement{ID: id, Components: components})
	}
	sort.Slice(state, func(i, j int) bool {
		return state[i].ID < state[j].ID
	})
	return state, nil
}
