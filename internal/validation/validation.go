// Package validation checks user-supplied inputs (debug tool arguments and
// configuration values) before they reach the network or the filesystem.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput       = errors.New("input cannot be empty")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrInvalidRepo      = errors.New("invalid repository coordinate")
	ErrInvalidHostname  = errors.New("invalid hostname")
	ErrInvalidID        = errors.New("invalid plugin identifier")
	ErrNewlineInjection = errors.New("newline injection detected")
	ErrInvalidAddress   = errors.New("invalid listen address")
)

// Compiled regex patterns for validation (compiled once for performance).
var (
	// repoSegmentRegex matches one owner or repository name segment.
	// Examples: "amycatgirl", "dyna", "my.plugin_2"
	repoSegmentRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

	// hostnameRegex matches forge hostnames with an optional port.
	// Examples: "codeberg.org", "git.example.com:3000"
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.-]*(:[0-9]{1,5})?$`)

	// identifierRegex matches plugin namespaces and ids.
	// Examples: "amycatgirl", "dyna-devel"
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

	// controlCharRegex matches ASCII control characters.
	controlCharRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateURL validates an artifact URL. Only http and https are allowed.
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ErrEmptyInput
	}

	if len(urlStr) > 2048 {
		return fmt.Errorf("%w: URL too long", ErrInvalidURL)
	}

	if controlCharRegex.MatchString(urlStr) {
		return fmt.Errorf("%w: URL contains control characters", ErrInvalidURL)
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must be a valid HTTP/HTTPS URL", ErrInvalidURL, urlStr)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, urlStr)
	}

	return nil
}

// ValidateRepo validates an owner/name repository coordinate.
func ValidateRepo(repo string) error {
	if repo == "" {
		return ErrEmptyInput
	}

	parts := strings.Split(repo, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%w: %q must be in owner/name form", ErrInvalidRepo, repo)
	}
	for _, p := range parts {
		if p == "." || p == ".." || !repoSegmentRegex.MatchString(p) {
			return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidRepo, repo)
		}
	}

	return nil
}

// ValidateHostname validates a forge hostname. Empty means "no forge".
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return nil
	}

	if len(hostname) > 253 {
		return fmt.Errorf("%w: hostname too long", ErrInvalidHostname)
	}

	if !hostnameRegex.MatchString(hostname) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidHostname, hostname)
	}

	return nil
}

// ValidateIdentifier validates a plugin namespace or id.
func ValidateIdentifier(id string) error {
	if id == "" {
		return ErrEmptyInput
	}

	if len(id) > 128 {
		return fmt.Errorf("%w: identifier too long", ErrInvalidID)
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidID, id)
	}

	return nil
}

// ValidateCommandLine rejects command lines that span several lines.
func ValidateCommandLine(line string) error {
	if strings.ContainsAny(line, "\n\r") {
		return fmt.Errorf("%w: command contains newlines", ErrNewlineInjection)
	}
	return nil
}

// ValidateListenAddress validates a host:port listen address. Empty means
// disabled.
func ValidateListenAddress(addr string) error {
	if addr == "" {
		return nil
	}

	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return fmt.Errorf("%w: %q must be host:port", ErrInvalidAddress, addr)
	}
	port := addr[i+1:]
	if port == "" || len(port) > 5 || strings.Trim(port, "0123456789") != "" {
		return fmt.Errorf("%w: %q has an invalid port", ErrInvalidAddress, addr)
	}
	if controlCharRegex.MatchString(addr) {
		return fmt.Errorf("%w: address contains control characters", ErrInvalidAddress)
	}

	return nil
}
