// Package persist stores serialized world snapshots in Redis. Every saved
// snapshot gets a fresh uuid and is written together with a schema manifest
// (component name to JSON schema); loading verifies the manifest against the
// target world's registered components before any bytes are deserialized, so
// a snapshot written by an incompatible component set is rejected instead of
// misparsed.
package persist

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/keystone-games/packworld/snapshot"
	"github.com/keystone-games/packworld/types"
)

var (
	ErrSnapshotNotFound = eris.New("snapshot does not exist")

	// ErrComponentMismatchWithSavedState is returned when a component schema
	// recorded in the saved state does not match the world's registered
	// component of the same name, or is missing entirely.
	ErrComponentMismatchWithSavedState = eris.New("registered components do not match with the saved state")
)

// SnapshotStore saves and loads world snapshots in one Redis namespace.
type SnapshotStore struct {
	client    redis.Cmdable
	namespace string
	logger    zerolog.Logger
}

// Option augments the creation of a SnapshotStore.
type Option func(s *SnapshotStore)

// WithLogger sets the logger used for save/load events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *SnapshotStore) {
		s.logger = logger
	}
}

// NewSnapshotStore creates a store on top of an existing Redis client.
func NewSnapshotStore(client redis.Cmdable, namespace string, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		client:    client,
		namespace: namespace,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient creates a Redis client from the config.
func NewRedisClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
}

// Save serializes the world and stores it under a fresh snapshot id, which is
// returned.
func (s *SnapshotStore) Save(ctx context.Context, world *snapshot.World) (string, error) {
	id := uuid.NewString()

	var buf bytes.Buffer
	if err := world.Serialize(&buf); err != nil {
		return "", err
	}
	manifestBz, err := json.Marshal(schemaManifest(world.GetRegisteredComponents()))
	if err != nil {
		return "", eris.Wrap(err, "")
	}

	if err := s.client.Set(ctx, snapshotDataKey(s.namespace, id), buf.Bytes(), 0).Err(); err != nil {
		return "", eris.Wrap(err, "")
	}
	if err := s.client.Set(ctx, snapshotSchemaKey(s.namespace, id), manifestBz, 0).Err(); err != nil {
		return "", eris.Wrap(err, "")
	}
	if err := s.client.SAdd(ctx, snapshotIndexKey(s.namespace), id).Err(); err != nil {
		return "", eris.Wrap(err, "")
	}

	s.logger.Info().
		Str("snapshot_id", id).
		Int("snapshot_bytes", buf.Len()).
		Msg("snapshot saved")
	return id, nil
}

// Load verifies the saved schema manifest against the world's registered
// components and deserializes the snapshot into the world's stores.
func (s *SnapshotStore) Load(ctx context.Context, id string, world *snapshot.World) error {
	manifestBz, err := s.client.Get(ctx, snapshotSchemaKey(s.namespace, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return eris.Wrapf(ErrSnapshotNotFound, "snapshot %q", id)
	}
	if err != nil {
		return eris.Wrap(err, "")
	}
	manifest := map[string]json.RawMessage{}
	if err := json.Unmarshal(manifestBz, &manifest); err != nil {
		return eris.Wrap(err, "")
	}
	for _, metadata := range world.GetRegisteredComponents() {
		stored, ok := manifest[metadata.Name()]
		if !ok {
			return eris.Wrapf(ErrComponentMismatchWithSavedState,
				"component %q is not in the saved state", metadata.Name())
		}
		valid, err := types.IsSchemaValid(stored, metadata.GetSchema())
		if err != nil {
			return err
		}
		if !valid {
			return eris.Wrapf(ErrComponentMismatchWithSavedState,
				"component %q", metadata.Name())
		}
	}

	data, err := s.client.Get(ctx, snapshotDataKey(s.namespace, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return eris.Wrapf(ErrSnapshotNotFound, "snapshot %q", id)
	}
	if err != nil {
		return eris.Wrap(err, "")
	}
	if err := world.Deserialize(bytes.NewReader(data)); err != nil {
		return err
	}

	s.logger.Info().
		Str("snapshot_id", id).
		Int("snapshot_bytes", len(data)).
		Msg("snapshot loaded")
	return nil
}

// List returns every stored snapshot id in the namespace, sorted.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, snapshotIndexKey(s.namespace)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes one stored snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx,
		snapshotDataKey(s.namespace, id),
		snapshotSchemaKey(s.namespace, id),
	).Result()
	if err != nil {
		return eris.Wrap(err, "")
	}
	if err := s.client.SRem(ctx, snapshotIndexKey(s.namespace), id).Err(); err != nil {
		return eris.Wrap(err, "")
	}
	if removed == 0 {
		return eris.Wrapf(ErrSnapshotNotFound, "snapshot %q", id)
	}
	return nil
}

func schemaManifest(components []types.ComponentMetadata) map[string]json.RawMessage {
	manifest := make(map[string]json.RawMessage, len(components))
	for _, metadata := range components {
		manifest[metadata.Name()] = metadata.GetSchema()
	}
	return manifest
}
