// Package topic builds MQTT topic strings of the form {root}/{segment}/{id}.
package topic

import (
	"fmt"
	"strings"
)

const (
	// Wildcard matches exactly one topic level.
	Wildcard = "+"

	// MultiWildcard matches the remaining levels. It must be last.
	MultiWildcard = "#"

	sharePrefix = "$share"
)

// Builder constructs topics below a root namespace such as "tuemi/v1".
type Builder struct {
	root  string
	group string
}

// NewBuilder creates a Builder for root. Leading and trailing slashes are trimmed.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Shared returns a Builder whose wildcard topics subscribe through the shared
// subscription group, so that several server replicas split the load.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, group: group}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, segment, id)
}

// BuildWildcard returns the subscription filter for every id under segment,
// prefixed with $share/{group}/ for shared builders.
func (b *Builder) BuildWildcard(segment string) string {
	t := b.Build(segment, Wildcard)
	if b.group != "" {
		return fmt.Sprintf("%s/%s/%s", sharePrefix, b.group, t)
	}
	return t
}

// ID extracts the trailing identifier from a concrete topic under segment.
func (b *Builder) ID(segment, topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", b.root, segment)
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
