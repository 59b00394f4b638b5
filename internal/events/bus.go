// Package events re-exports the platform event bus so domain modules import
// one package for both the bus and the events they publish.
package events

import (
	platformevents "github.com/alexcopeland13/relay-isa-automation-sub001/platform/events"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
