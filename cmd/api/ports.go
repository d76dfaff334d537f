package main

import (
	natsadapter "github.com/samirrijal/regionlatency/internal/adapters/nats"
	"github.com/samirrijal/regionlatency/internal/adapters/valkey"
	"github.com/samirrijal/regionlatency/internal/core/ports"
)

// usecasePorts converts optional adapters into port interfaces, mapping nil
// pointers to nil interfaces.
func usecasePorts(cache *valkey.Cache, events *natsadapter.Publisher) (ports.CacheService, ports.EventPublisher) {
	var c ports.CacheService
	var e ports.EventPublisher
	if cache != nil {
		c = cache
	}
	if events != nil {
		e = events
	}
	return c, e
}
