package remote

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultTarget is the artifact file used when neither manifest nor plugin names one.
const DefaultTarget = "plugin.json"

// Manifest is the remote document describing the newest published version.
type Manifest struct {
	Latest int    `json:"latest"`
	Target string `json:"target,omitempty"`
}

// ArtifactName returns the artifact file, falling back to DefaultTarget.
func (m *Manifest) ArtifactName() string {
	if t := strings.TrimSpace(m.Target); t != "" {
		return t
	}
	return DefaultTarget
}

// IsNewerThan reports whether the manifest publishes a version above v.
func (m *Manifest) IsNewerThan(v int) bool {
	return m.Latest > v
}

//go:embed schema/manifest.schema.json
var manifestSchema []byte

var compiledManifestSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	const schemaFile = "schema/manifest.schema.json"
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaFile, doc); err != nil {
		return nil, fmt.Errorf("failed to add manifest schema: %w", err)
	}
	return c.Compile(schemaFile)
})

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	sch, err := compiledManifestSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid manifest JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("manifest does not match schema: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}
