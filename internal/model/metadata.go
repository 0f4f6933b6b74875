package model

import (
	"io"
	"slices"
	"time"
)

// Well-known catalog attributes.
const (
	AttrID               = "id"
	AttrTitle            = "title"
	AttrTags             = "metacard-tags"
	AttrModified         = "metacard.modified"
	AttrOrigins          = "replication.origins"
	AttrVersionedOn      = "metacard.version.versioned-on"
	AttrVersionAction    = "metacard.version.action"
	AttrVersionID        = "metacard.version.id"
	AttrRegistryIdentity = "registry.local.registry-identity-node"
)

// Well-known tag and action values.
const (
	TagDefault    = "resource"
	TagRevision   = "revision"
	TagRegistry   = "registry"
	ActionDeleted = "Deleted"
)

// Resource is the optional binary payload attached to a record.
type Resource struct {
	Name     string
	MIMEType string
	Size     int64
	Data     io.Reader
}

// Metadata is one catalog record. Raw is opaque to the engine.
type Metadata struct {
	ID         string
	Raw        []byte
	Modified   time.Time
	Tags       []string
	Origins    []string
	Attributes map[string]string
	Resource   *Resource

	// Deleted marks a tombstone: the record was deleted at its source and
	// ID names the deleted record.
	Deleted bool
}

// Title returns the record's title attribute.
func (m Metadata) Title() string { return m.Attributes[AttrTitle] }

// HasOrigin reports whether name is already listed in the record's origins.
func (m Metadata) HasOrigin(name string) bool {
	return slices.Contains(m.Origins, name)
}

// WithOrigin returns a copy of m with name appended to its origins unless
// it is already present.
func (m Metadata) WithOrigin(name string) Metadata {
	if name == "" || m.HasOrigin(name) {
		return m
	}
	m.Origins = append(slices.Clone(m.Origins), name)
	return m
}

// ResourceSize returns the payload size, or 0 without a resource.
func (m Metadata) ResourceSize() int64 {
	if m.Resource == nil {
		return 0
	}
	return m.Resource.Size
}
