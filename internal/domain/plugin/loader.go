package plugin

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// maxArtifactSize limits how much artifact text is parsed (4MB).
const maxArtifactSize = 4 << 20

// Loader parses fetched artifacts and registers them with the host.
type Loader struct {
	host   Host
	logger ports.Logger
}

// NewLoader creates a loader registering plugins with host.
func NewLoader(host Host, logger ports.Logger) (*Loader, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if logger == nil {
		logger = ports.Discard()
	}
	return &Loader{host: host, logger: logger}, nil
}

// Load parses raw as a plugin object and hands it to the host. Errors are
// returned, not raised: the caller decides whether a failure is fatal.
func (l *Loader) Load(ctx context.Context, raw string) (Object, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ArtifactParseError{Reason: "empty content", Err: ErrEmptyArtifact}
	}
	if len(raw) > maxArtifactSize {
		return nil, &ArtifactParseError{Reason: "artifact exceeds size limit"}
	}

	obj, err := ParseObject([]byte(raw))
	if err != nil {
		l.logger.Error(ctx, "could not parse plugin", ports.Err(err))
		return nil, &ArtifactParseError{Reason: "invalid JSON", Err: err}
	}

	verr := &ValidationError{}
	if obj.Namespace() == "" {
		verr.Add("namespace is required")
	}
	if obj.ID() == "" {
		verr.Add("id is required")
	}
	if verr.HasErrors() {
		l.logger.Error(ctx, "could not load plugin", ports.Err(verr))
		return nil, &ArtifactParseError{Reason: "missing identity", Err: verr}
	}

	l.logger.Debug(ctx, "parsed plugin", ports.F("key", obj.Key()))

	if err := l.host.Add(ctx, obj); err != nil {
		l.logger.Error(ctx, "could not load plugin", ports.F("key", obj.Key()), ports.Err(err))
		return nil, &HostRegistrationError{Key: obj.Key(), Err: err}
	}

	l.logger.Info(ctx, "plugin loaded", ports.F("key", obj.Key()))
	return obj, nil
}
