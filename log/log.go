package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/keystone-games/packworld/types"
)

// Loggable is anything that can report its registered component kinds.
type Loggable interface {
	GetRegisteredComponents() []types.ComponentMetadata
}

func loadComponentIntoArrayLogger(
	component types.ComponentMetadata,
	arrayLogger *zerolog.Array,
) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(component.ID()))
	dictLogger = dictLogger.Str("component_name", component.Name())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.GetRegisteredComponents()
	sort.Slice(components, func(i, j int) bool {
		return components[i].ID() < components[j].ID()
	})
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, _component := range components {
		arrayLogger = loadComponentIntoArrayLogger(_component, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

// Components logs all registered component kinds of the target.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Population logs the size of one component kind's population.
func Population(
	logger *zerolog.Logger, level zerolog.Level,
	id types.ComponentID, name string, count int,
) {
	logger.WithLevel(level).
		Int("component_id", int(id)).
		Str("component_name", name).
		Int("population", count).
		Send()
}

// CreateWorldLogger creates a sub logger with the entry {"world": worldName}.
func CreateWorldLogger(logger *zerolog.Logger, worldName string) *zerolog.Logger {
	newLogger := logger.With().Str("world", worldName).Logger()
	return &newLogger
}
