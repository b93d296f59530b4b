package types

import "math"

// EntityID is the opaque identifier of an entity. IDs are allocated by the
// caller; this module never mints them and only uses them as map keys.
type EntityID uint32

// BadID is the sentinel returned by positional lookups that fall outside a
// store's dense range.
const BadID = EntityID(math.MaxUint32)
