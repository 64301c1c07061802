// Package plugin models host plugins that opt into self-updating, the store
// that snapshots them and the loader that registers replacement artifacts.
package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Marker is the update-eligibility block a host plugin carries under "dyna".
// Only plugins exposing a marker participate in updating.
type Marker struct {
	// Repo is the repository coordinate in owner/repo form.
	Repo string `json:"repo" yaml:"repo"`
	// Dev exempts the plugin from automatic replacement.
	Dev bool `json:"dev,omitempty" yaml:"dev,omitempty"`
	// ShouldRestart asks for a host restart once the plugin was replaced.
	ShouldRestart bool `json:"shouldRestart,omitempty" yaml:"shouldRestart,omitempty"`
	// Forge is an optional git forge hostname (e.g. "codeberg.org").
	Forge string `json:"forge,omitempty" yaml:"forge,omitempty"`
	// Target overrides the artifact file named by the remote manifest.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Descriptor is the typed view of one entry in the host's plugin registry.
// Optional fields are pointers so a missing value can be told apart from a zero.
type Descriptor struct {
	Namespace string  `json:"namespace" yaml:"namespace"`
	ID        string  `json:"id" yaml:"id"`
	Version   *int    `json:"version,omitempty" yaml:"version,omitempty"`
	Dyna      *Marker `json:"dyna,omitempty" yaml:"dyna,omitempty"`
}

// Key returns the composite registry key of the descriptor.
func (d Descriptor) Key() string {
	return Key(d.Namespace, d.ID)
}

// Eligible reports whether the descriptor opted into updating.
func (d Descriptor) Eligible() bool {
	return d.Dyna != nil
}

// Validate checks the fields a Record needs.
func (d Descriptor) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(d.Namespace) == "" {
		verr.Add("namespace is required")
	}
	if strings.TrimSpace(d.ID) == "" {
		verr.Add("id is required")
	}
	if d.Version == nil {
		verr.Add("version is required")
	} else if *d.Version < 0 {
		verr.Addf("version must not be negative, got %d", *d.Version)
	}
	if d.Dyna == nil {
		verr.Add("dyna marker is required")
	} else if strings.TrimSpace(d.Dyna.Repo) == "" {
		verr.Add("dyna.repo is required")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Key builds the composite key used for both registry entries and records.
func Key(author, id string) string {
	return author + "/" + id
}

// Record is the store's snapshot of one plugin participating in updates.
type Record struct {
	Author        string `json:"author"`
	ID            string `json:"id"`
	Repo          string `json:"repo"`
	Forge         string `json:"forge,omitempty"`
	Target        string `json:"target,omitempty"`
	Version       int    `json:"version"`
	Dev           bool   `json:"dev"`
	ShouldRestart bool   `json:"shouldRestart"`
}

// NewRecord merges a descriptor's marker with its identity and version.
func NewRecord(d Descriptor) (Record, error) {
	if err := d.Validate(); err != nil {
		return Record{}, err
	}
	return Record{
		Author:        d.Namespace,
		ID:            d.ID,
		Repo:          strings.TrimSpace(d.Dyna.Repo),
		Forge:         strings.TrimSpace(d.Dyna.Forge),
		Target:        strings.TrimSpace(d.Dyna.Target),
		Version:       *d.Version,
		Dev:           d.Dyna.Dev,
		ShouldRestart: d.Dyna.ShouldRestart,
	}, nil
}

// Key returns the (author, id) composite key.
func (r Record) Key() string {
	return Key(r.Author, r.ID)
}

// String returns a human-readable record description.
func (r Record) String() string {
	return fmt.Sprintf("%s@%d", r.Key(), r.Version)
}

// Object is a parsed plugin artifact as handed to the host. It is kept as a
// generic JSON object so fields unknown to the updater survive registration.
type Object map[string]any

// ParseObject decodes an artifact. The payload must be a single JSON object.
func ParseObject(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("artifact is not a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after artifact object")
	}
	return obj, nil
}

// Namespace returns the object's namespace field, or "".
func (o Object) Namespace() string {
	s, _ := o["namespace"].(string)
	return s
}

// ID returns the object's id field, or "".
func (o Object) ID() string {
	s, _ := o["id"].(string)
	return s
}

// Key returns the composite registry key of the object.
func (o Object) Key() string {
	return Key(o.Namespace(), o.ID())
}

// Version returns the object's integer version when present.
func (o Object) Version() (int, bool) {
	switch v := o["version"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
