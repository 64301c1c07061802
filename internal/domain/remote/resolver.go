// Package remote resolves, fetches and downloads the files a plugin repository
// publishes: the version manifest and the plugin artifact.
package remote

import (
	"fmt"
	"strings"
)

// Well-known remote layout.
const (
	// ManifestFile is the manifest name every participating repository publishes.
	ManifestFile = "dyna.json"
	// Branch is the only branch the updater reads from.
	Branch = "main"
	// DefaultRawBase serves raw files for repositories without a forge.
	DefaultRawBase = "https://raw.githubusercontent.com"
)

// Coordinates locate a plugin's repository.
type Coordinates struct {
	// Repo is the owner/name repository path.
	Repo string
	// Forge is an optional git forge hostname serving Gitea-style raw paths.
	Forge string
}

func (c Coordinates) String() string {
	if c.Forge == "" {
		return c.Repo
	}
	return c.Forge + "/" + c.Repo
}

// Resolver turns coordinates into raw file URLs.
type Resolver struct {
	// DefaultBase is used when the coordinates name no forge.
	DefaultBase string
	// ForgeScheme is the URL scheme used for forge hosts.
	ForgeScheme string
}

// DefaultResolver returns the resolver for public hosting.
func DefaultResolver() Resolver {
	return Resolver{
		DefaultBase: DefaultRawBase,
		ForgeScheme: "https",
	}
}

// ManifestURL returns the URL of the repository's manifest on the main branch.
func (r Resolver) ManifestURL(c Coordinates) (string, error) {
	return r.ArtifactURL(c, ManifestFile)
}

// ArtifactURL returns the URL of file on the repository's main branch.
func (r Resolver) ArtifactURL(c Coordinates, file string) (string, error) {
	repo := strings.Trim(strings.TrimSpace(c.Repo), "/")
	if err := validatePath(repo); err != nil {
		return "", fmt.Errorf("%w: repo %q: %v", ErrInvalidCoordinates, c.Repo, err)
	}
	if !strings.Contains(repo, "/") {
		return "", fmt.Errorf("%w: repo %q must be owner/name", ErrInvalidCoordinates, c.Repo)
	}
	if strings.HasPrefix(file, "/") {
		return "", fmt.Errorf("%w: target %q must be relative", ErrInvalidCoordinates, file)
	}
	if err := validatePath(file); err != nil {
		return "", fmt.Errorf("%w: target %q: %v", ErrInvalidCoordinates, file, err)
	}

	forge := strings.TrimSpace(c.Forge)
	if forge == "" {
		base := strings.TrimRight(r.DefaultBase, "/")
		if base == "" {
			base = DefaultRawBase
		}
		return fmt.Sprintf("%s/%s/%s/%s", base, repo, Branch, file), nil
	}

	if strings.ContainsAny(forge, "/\\ ") {
		return "", fmt.Errorf("%w: forge %q must be a hostname", ErrInvalidCoordinates, c.Forge)
	}
	scheme := r.ForgeScheme
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/raw/branch/%s/%s", scheme, forge, repo, Branch, file), nil
}

func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("backslash not allowed")
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return fmt.Errorf("empty path segment")
		case ".", "..":
			return fmt.Errorf("relative segment %q not allowed", seg)
		}
	}
	return nil
}
