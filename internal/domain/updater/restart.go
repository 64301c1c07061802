package updater

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// RestartPolicy warns the user and restarts the host after plugins that ask
// for it were replaced.
type RestartPolicy struct {
	notifier ports.RestartNotifier
	reloader ports.Reloader
	logger   ports.Logger
}

// NewRestartPolicy creates a restart policy. A nil notifier skips the warning.
func NewRestartPolicy(notifier ports.RestartNotifier, reloader ports.Reloader, logger ports.Logger) *RestartPolicy {
	if logger == nil {
		logger = ports.Discard()
	}
	return &RestartPolicy{
		notifier: notifier,
		reloader: reloader,
		logger:   logger,
	}
}

// Apply warns about the replaced plugins and reloads the host. The warning
// blocks; the reload only starts once it was delivered.
func (p *RestartPolicy) Apply(ctx context.Context, plugins []string) error {
	if len(plugins) == 0 {
		return nil
	}

	if p.notifier != nil {
		if err := p.notifier.Warn(ctx, plugins); err != nil {
			return fmt.Errorf("warning about restart: %w", err)
		}
	}

	if p.reloader == nil {
		p.logger.Warn(ctx, "restart requested but no reloader configured", ports.F("plugins", plugins))
		return ErrNoReloader
	}

	p.logger.Info(ctx, "restarting host", ports.F("plugins", plugins))
	if err := p.reloader.Reload(ctx); err != nil {
		return fmt.Errorf("reloading host: %w", err)
	}
	return nil
}
