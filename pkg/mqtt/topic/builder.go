package topic

import (
	"strings"
)

// Builder encapsulates the logic for constructing MQTT topic strings.
type Builder struct {
	// root is the base namespace for all topics (e.g., "fleet/v1").
	root string

	// group, when set, turns subscriptions into shared subscriptions.
	group string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimSuffix(root, separator)}
}

// Shared returns a copy of the builder that prefixes wildcard filters with
// $share/{group}/ so several consoles can split the load.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, group: group}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return strings.Join([]string{b.root, segment, id}, separator)
}

// BuildWildcard returns the filter matching every id under segment.
func (b *Builder) BuildWildcard(segment string) string {
	filter := b.Build(segment, Wildcard)
	if b.group != "" {
		return sharePrefix + b.group + separator + filter
	}
	return filter
}

// ID extracts the trailing id from a concrete topic under segment. It
// returns false when the topic does not belong to segment.
func (b *Builder) ID(segment, topic string) (string, bool) {
	prefix := b.root + separator + segment + separator
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := topic[len(prefix):]
	if id == "" || strings.Contains(id, separator) {
		return "", false
	}
	return id, true
}
