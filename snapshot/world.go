// Package snapshot serializes whole populations of per-entity component
// values into a compact, versioned binary format, and restores them.
//
// A World is a closed registry of component kinds. Each kind binds a
// storage.Store to the binary codec compiled for its component type and gets
// a tag, assigned in registration order, that frames its population block in
// the snapshot stream:
//
//	snapshot := u32 major, u32 minor, u32 patch, block*
//	block    := u32 tag, u64 count, (u32 entity id, value){count}
//
// The count is written for every block, zero included, so a reader can
// always tell where one block ends and the next tag begins. The standalone
// population adapters in this package keep their own framing, where an empty
// population is zero bytes.
//
// The format carries no schema; reading a snapshot requires the same kinds
// registered in the same order as when it was written. A tag that matches no
// registered kind aborts the decode.
package snapshot

import (
	"errors"
	"io"
	"math"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/keystone-games/packworld/codec"
	"github.com/keystone-games/packworld/component"
	"github.com/keystone-games/packworld/log"
	"github.com/keystone-games/packworld/storage"
	"github.com/keystone-games/packworld/types"
)

// Version labels the snapshot layout. Snapshots are readable as long as the
// major version matches.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// CurrentVersion is the layout version written by Serialize.
var CurrentVersion = Version{Major: 1, Minor: 0, Patch: 0}

var _ log.Loggable = (*World)(nil)

// World is an ordered, closed set of registered component kinds that can be
// serialized to and restored from a single snapshot stream.
type World struct {
	logger    zerolog.Logger
	version   Version
	kinds     []registeredKind
	kindsByID map[types.ComponentID]registeredKind
	nextID    types.ComponentID
}

// Option augments the creation of a World.
type Option func(w *World)

// WithLogger sets the logger used for registration and snapshot events.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// WithVersion overrides the version written to and accepted from snapshots.
func WithVersion(v Version) Option {
	return func(w *World) {
		w.version = v
	}
}

// NewWorld creates a world with no registered kinds.
func NewWorld(opts ...Option) *World {
	w := &World{
		logger:    zerolog.Nop(),
		version:   CurrentVersion,
		kindsByID: map[types.ComponentID]registeredKind{},
		nextID:    1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// registeredKind erases the component type of one registered kind so the
// world can hold its kinds in a single table.
type registeredKind interface {
	types.ComponentMetadata
	count() int
	writePopulationEntries(w io.Writer) error
	readPopulationEntries(r io.Reader, count uint64) error
	debugComponents(out map[types.EntityID]map[string]jsonRawMessage) error
}

type kind[T types.Component] struct {
	types.ComponentMetadata
	store *storage.Store[T]
}

func (k *kind[T]) count() int {
	return k.store.Len()
}

func (k *kind[T]) writePopulationEntries(w io.Writer) error {
	return writeEntries(w, k.store)
}

func (k *kind[T]) readPopulationEntries(r io.Reader, count uint64) error {
	return readEntries(r, k.store, count)
}

// RegisterComponent registers component type T backed by store, assigning it
// the next kind tag. The binary shape of T is compiled during registration,
// so unsupported component shapes fail here. Registration order determines
// block order in every snapshot this world writes or reads.
func RegisterComponent[T types.Component](w *World, store *storage.Store[T]) (types.ComponentMetadata, error) {
	metadata, err := component.NewComponentMetadata[T]()
	if err != nil {
		return nil, err
	}
	for _, existing := range w.kinds {
		if existing.Name() == metadata.Name() {
			return nil, eris.Wrapf(ErrComponentRegistered, "component %q", metadata.Name())
		}
	}
	if err := metadata.SetID(w.nextID); err != nil {
		return nil, err
	}
	w.nextID++

	k := &kind[T]{ComponentMetadata: metadata, store: store}
	w.kinds = append(w.kinds, k)
	w.kindsByID[metadata.ID()] = k

	w.logger.Debug().
		Int("component_id", int(metadata.ID())).
		Str("component_name", metadata.Name()).
		Msg("component registered")
	return metadata, nil
}

// GetRegisteredComponents returns the metadata of every registered kind in
// registration order.
func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	metadata := make([]types.ComponentMetadata, len(w.kinds))
	for i, k := range w.kinds {
		metadata[i] = k
	}
	return metadata
}

// Version returns the snapshot version this world writes and accepts.
func (w *World) Version() Version {
	return w.version
}

// Serialize writes the version header followed by one tagged population
// block per registered kind, in registration order.
func (w *World) Serialize(out io.Writer) error {
	if err := writeUint32(out, w.version.Major); err != nil {
		return err
	}
	if err := writeUint32(out, w.version.Minor); err != nil {
		return err
	}
	if err := writeUint32(out, w.version.Patch); err != nil {
		return err
	}
	for _, k := range w.kinds {
		if err := writeUint32(out, uint32(k.ID())); err != nil {
			return err
		}
		if err := writeUint64(out, uint64(k.count())); err != nil {
			return err
		}
		if err := k.writePopulationEntries(out); err != nil {
			return eris.Wrapf(err, "serializing component %q", k.Name())
		}
		log.Population(&w.logger, zerolog.DebugLevel, k.ID(), k.Name(), k.count())
	}
	return nil
}

// Deserialize reads a snapshot, dispatching each tagged block to the matching
// registered kind until the input is exhausted. Target stores are not
// cleared first; entries already present keep the duplicate-slot semantics
// of storage.Store.Add.
func (w *World) Deserialize(in io.Reader) error {
	version, err := w.readHeader(in)
	if err != nil {
		return err
	}
	if version.Major != w.version.Major {
		return eris.Wrapf(ErrVersionMismatch,
			"snapshot version %d.%d.%d, world version %d.%d.%d",
			version.Major, version.Minor, version.Patch,
			w.version.Major, w.version.Minor, w.version.Patch)
	}
	for {
		tag, err := readUint32(in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		k, ok := w.kindsByID[types.ComponentID(tag)]
		if !ok {
			return eris.Wrapf(ErrUnknownComponentTag, "tag %d", tag)
		}
		count, err := readUint64(in)
		if errors.Is(err, io.EOF) {
			return eris.Wrapf(codec.ErrTruncated, "reading count of component %q", k.Name())
		}
		if err != nil {
			return err
		}
		if count > math.MaxInt32 {
			return eris.Wrapf(codec.ErrLengthOutOfRange, "component %q: %d entries", k.Name(), count)
		}
		if err := k.readPopulationEntries(in, count); err != nil {
			return eris.Wrapf(err, "deserializing component %q", k.Name())
		}
		log.Population(&w.logger, zerolog.DebugLevel, k.ID(), k.Name(), k.count())
	}
	return nil
}

// readHeader treats any missing header byte as truncation. Only the tag loop
// reads a clean end of input as the end of the snapshot.
func (w *World) readHeader(in io.Reader) (Version, error) {
	var v Version
	var err error
	if v.Major, err = readUint32(in); err != nil {
		return v, headerError(err)
	}
	if v.Minor, err = readUint32(in); err != nil {
		return v, headerError(err)
	}
	if v.Patch, err = readUint32(in); err != nil {
		return v, headerError(err)
	}
	return v, nil
}

func headerError(err error) error {
	if errors.Is(err, io.EOF) {
		err = codec.ErrTruncated
	}
	return eris.Wrap(err, "reading snapshot header")
}
