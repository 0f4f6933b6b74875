package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/replicate/internal/model"
)

//go:embed schema.cue
var schemaSource []byte

// ErrNoTopology is returned when a directory holds no CUE files.
var ErrNoTopology = errors.New("no topology files")

// Topology is the configured set of sites, filters and replications.
// Each list is sorted by id.
type Topology struct {
	Sites        []model.Site
	Filters      []model.Filter
	Replications []model.Replication
}

// LoadError is a topology error, positioned in CUE source when possible.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Path, e.Message)
	}
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadTopology loads every .cue file of dir as one package, unifies it
// with the schema, decodes it and checks cross references.
func LoadTopology(dir string) (*Topology, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("topology directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("topology: not a directory: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTopology, dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("load", inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError("build", err)
	}
	return decodeTopology(ctx, value)
}

// ParseTopology parses a single CUE document. Used by tests and by
// callers holding topology in memory.
func ParseTopology(src string) (*Topology, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename("topology.cue"))
	if err := value.Err(); err != nil {
		return nil, formatCUEError("build", err)
	}
	return decodeTopology(ctx, value)
}

func decodeTopology(ctx *cue.Context, value cue.Value) (*Topology, error) {
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError("schema", err)
	}
	value = value.Unify(schema)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError("validate", err)
	}

	t := &Topology{}
	err := eachField(value, "site", func(id string, v cue.Value) error {
		var s struct {
			Name     string `json:"name"`
			Kind     string `json:"kind"`
			Location string `json:"location"`
		}
		if err := v.Decode(&s); err != nil {
			return err
		}
		name := s.Name
		if name == "" {
			name = id
		}
		t.Sites = append(t.Sites, model.Site{ID: id, Name: name, Kind: s.Kind, Location: s.Location})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(value, "filter", func(id string, v cue.Value) error {
		var f struct {
			Site        string `json:"site"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Query       string `json:"query"`
			Suspended   bool   `json:"suspended"`
		}
		if err := v.Decode(&f); err != nil {
			return err
		}
		t.Filters = append(t.Filters, model.Filter{
			ID:          id,
			SiteID:      f.Site,
			Name:        f.Name,
			Description: f.Description,
			Query:       f.Query,
			Suspended:   f.Suspended,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(value, "replication", func(id string, v cue.Value) error {
		var r struct {
			Name        string `json:"name"`
			Source      string `json:"source"`
			Destination string `json:"destination"`
			Direction   string `json:"direction"`
			Query       string `json:"query"`
			Suspended   bool   `json:"suspended"`
		}
		if err := v.Decode(&r); err != nil {
			return err
		}
		name := r.Name
		if name == "" {
			name = id
		}
		t.Replications = append(t.Replications, model.Replication{
			ID:          id,
			Name:        name,
			Source:      r.Source,
			Destination: r.Destination,
			Direction:   model.Direction(r.Direction),
			Query:       r.Query,
			Suspended:   r.Suspended,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(t.Sites, func(i, j int) bool { return t.Sites[i].ID < t.Sites[j].ID })
	sort.Slice(t.Filters, func(i, j int) bool { return t.Filters[i].ID < t.Filters[j].ID })
	sort.Slice(t.Replications, func(i, j int) bool { return t.Replications[i].ID < t.Replications[j].ID })

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func eachField(root cue.Value, section string, fn func(id string, v cue.Value) error) error {
	v := root.LookupPath(cue.ParsePath(section))
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(section, err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return &LoadError{
				Path:    section + "." + iter.Label(),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

// Validate checks that every referenced site exists and that each entry
// is well formed. All problems are reported together.
func (t *Topology) Validate() error {
	var errs []error
	sites := make(map[string]bool, len(t.Sites))
	for _, s := range t.Sites {
		sites[model.NormalizeName(s.ID)] = true
	}
	for _, f := range t.Filters {
		if err := f.Validate(); err != nil {
			errs = append(errs, &LoadError{Path: "filter." + f.ID, Message: err.Error()})
		}
		if !sites[model.NormalizeName(f.SiteID)] {
			errs = append(errs, &LoadError{Path: "filter." + f.ID, Message: fmt.Sprintf("unknown site %q", f.SiteID)})
		}
	}
	for _, r := range t.Replications {
		if err := r.Validate(); err != nil {
			errs = append(errs, &LoadError{Path: "replication." + r.ID, Message: err.Error()})
		}
		for _, site := range []string{r.Source, r.Destination} {
			if !sites[model.NormalizeName(site)] {
				errs = append(errs, &LoadError{Path: "replication." + r.ID, Message: fmt.Sprintf("unknown site %q", site)})
			}
		}
	}
	return errors.Join(errs...)
}

// Site returns the site with id.
func (t *Topology) Site(id string) (model.Site, bool) {
	id = model.NormalizeName(id)
	for _, s := range t.Sites {
		if model.NormalizeName(s.ID) == id {
			return s, true
		}
	}
	return model.Site{}, false
}

// Replication returns the replication with id.
func (t *Topology) Replication(id string) (model.Replication, bool) {
	id = model.NormalizeName(id)
	for _, r := range t.Replications {
		if model.NormalizeName(r.ID) == id {
			return r, true
		}
	}
	return model.Replication{}, false
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(stage string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: stage, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Path: stage, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
