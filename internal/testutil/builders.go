package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
)

// DescriptorBuilder builds host plugin descriptors for tests.
type DescriptorBuilder struct {
	desc plugin.Descriptor
}

// NewDescriptor starts a descriptor for namespace/id at version 1 with a
// marker pointing at the repo of the same name.
func NewDescriptor(namespace, id string) *DescriptorBuilder {
	v := 1
	return &DescriptorBuilder{
		desc: plugin.Descriptor{
			Namespace: namespace,
			ID:        id,
			Version:   &v,
			Dyna:      &plugin.Marker{Repo: namespace + "/" + id},
		},
	}
}

// WithVersion sets the installed version.
func (b *DescriptorBuilder) WithVersion(v int) *DescriptorBuilder {
	b.desc.Version = &v
	return b
}

// WithoutVersion removes the version.
func (b *DescriptorBuilder) WithoutVersion() *DescriptorBuilder {
	b.desc.Version = nil
	return b
}

// WithRepo sets the marker repository.
func (b *DescriptorBuilder) WithRepo(repo string) *DescriptorBuilder {
	b.marker().Repo = repo
	return b
}

// WithForge sets the marker forge host.
func (b *DescriptorBuilder) WithForge(forge string) *DescriptorBuilder {
	b.marker().Forge = forge
	return b
}

// WithTarget sets the marker artifact override.
func (b *DescriptorBuilder) WithTarget(target string) *DescriptorBuilder {
	b.marker().Target = target
	return b
}

// Dev enables developer mode.
func (b *DescriptorBuilder) Dev() *DescriptorBuilder {
	b.marker().Dev = true
	return b
}

// Restart requests a host restart after replacement.
func (b *DescriptorBuilder) Restart() *DescriptorBuilder {
	b.marker().ShouldRestart = true
	return b
}

// Unmarked removes the update marker.
func (b *DescriptorBuilder) Unmarked() *DescriptorBuilder {
	b.desc.Dyna = nil
	return b
}

func (b *DescriptorBuilder) marker() *plugin.Marker {
	if b.desc.Dyna == nil {
		b.desc.Dyna = &plugin.Marker{}
	}
	return b.desc.Dyna
}

// Build returns the constructed descriptor.
func (b *DescriptorBuilder) Build() plugin.Descriptor {
	d := b.desc
	if d.Dyna != nil {
		m := *d.Dyna
		d.Dyna = &m
	}
	if d.Version != nil {
		v := *d.Version
		d.Version = &v
	}
	return d
}

// ToJSON returns the descriptor as a host registry file.
func (b *DescriptorBuilder) ToJSON() string {
	data, err := json.MarshalIndent(b.Build(), "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// ArtifactJSON returns a minimal plugin artifact.
func ArtifactJSON(namespace, id string, version int) string {
	return fmt.Sprintf(`{"namespace":%q,"id":%q,"version":%d,"dyna":{"repo":"%s/%s"}}`,
		namespace, id, version, namespace, id)
}

// ManifestJSON returns a manifest document.
func ManifestJSON(latest int, target string) string {
	if target == "" {
		return fmt.Sprintf(`{"latest":%d}`, latest)
	}
	return fmt.Sprintf(`{"latest":%d,"target":%q}`, latest, target)
}
