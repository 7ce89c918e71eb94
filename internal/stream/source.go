// Package stream moves alerts and discovery candidates over transport.
//
// Sources decode survey payloads into domain alerts through internal/schema
// and deliver them on a channel. The publisher writes promoted candidates
// back out to the per-survey discovery topics, keyed by object ID so one
// object's candidates land on one partition in order.
package stream

import (
	"context"

	"transient-filter/internal/domain"
)

// AlertSource delivers decoded alerts from an upstream transport.
type AlertSource interface {
	// Subscribe starts consumption and returns the alert channel.
	// The channel closes when the source stops.
	Subscribe(ctx context.Context) (<-chan domain.Alert, error)

	// Close stops consumption and releases transport resources.
	Close() error
}

// Publisher routes discovery candidates to their outcome channel.
// NO_DISCOVERY outcomes have no channel and are rejected.
type Publisher interface {
	Publish(ctx context.Context, c *domain.DiscoveryCandidate) error
	Close() error
}
