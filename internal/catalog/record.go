package catalog

import (
	"bytes"
	"slices"
	"time"

	"github.com/roach88/replicate/internal/cql"
	"github.com/roach88/replicate/internal/model"
)

type storedResource struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type storedRecord struct {
	ID         string            `json:"id"`
	Raw        []byte            `json:"raw,omitempty"`
	Modified   time.Time         `json:"modified"`
	Tags       []string          `json:"tags,omitempty"`
	Origins    []string          `json:"origins,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Resource   *storedResource   `json:"resource,omitempty"`
}

// storedRevision keeps the deleted record's attributes so base queries
// still select it.
type storedRevision struct {
	ID          string            `json:"id"`
	Action      string            `json:"action"`
	VersionedOn time.Time         `json:"versioned_on"`
	Origins     []string          `json:"origins,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func (r storedRecord) attributes() cql.AttributeMap {
	attrs := cql.AttributeMap{
		model.AttrID:       {r.ID},
		model.AttrModified: {r.Modified.UTC().Format(time.RFC3339Nano)},
	}
	if len(r.Tags) > 0 {
		attrs[model.AttrTags] = slices.Clone(r.Tags)
	}
	if len(r.Origins) > 0 {
		attrs[model.AttrOrigins] = slices.Clone(r.Origins)
	}
	for k, v := range r.Attributes {
		if _, reserved := attrs[k]; !reserved {
			attrs[k] = []string{v}
		}
	}
	return attrs
}

func (r storedRecord) metadata() model.Metadata {
	md := model.Metadata{
		ID:         r.ID,
		Raw:        slices.Clone(r.Raw),
		Modified:   r.Modified,
		Tags:       slices.Clone(r.Tags),
		Origins:    slices.Clone(r.Origins),
		Attributes: make(map[string]string, len(r.Attributes)),
	}
	for k, v := range r.Attributes {
		md.Attributes[k] = v
	}
	if r.Resource != nil {
		md.Resource = &model.Resource{
			Name:     r.Resource.Name,
			MIMEType: r.Resource.MIMEType,
			Size:     int64(len(r.Resource.Data)),
			Data:     bytes.NewReader(r.Resource.Data),
		}
	}
	return md
}

func revisionKey(id string) string { return "revision:" + id }

func (r storedRevision) attributes() cql.AttributeMap {
	attrs := cql.AttributeMap{
		model.AttrID:            {revisionKey(r.ID)},
		model.AttrTags:          {model.TagRevision},
		model.AttrVersionAction: {r.Action},
		model.AttrVersionedOn:   {r.VersionedOn.UTC().Format(time.RFC3339Nano)},
		model.AttrVersionID:     {r.ID},
	}
	if len(r.Origins) > 0 {
		attrs[model.AttrOrigins] = slices.Clone(r.Origins)
	}
	for k, v := range r.Attributes {
		if _, reserved := attrs[k]; !reserved {
			attrs[k] = []string{v}
		}
	}
	return attrs
}

func (r storedRevision) metadata() model.Metadata {
	attrs := make(map[string]string, len(r.Attributes)+1)
	for k, v := range r.Attributes {
		attrs[k] = v
	}
	attrs[model.AttrVersionAction] = r.Action
	return model.Metadata{
		ID:         r.ID,
		Modified:   r.VersionedOn,
		Tags:       []string{model.TagRevision},
		Origins:    slices.Clone(r.Origins),
		Attributes: attrs,
		Deleted:    true,
	}
}
