package ports

// ProgressSink receives progress notifications from an update cycle.
// Implementations render them (terminal bar, log lines) and must not block
// for long: they are called inline from the cycle.
type ProgressSink interface {
	// OnCountKnown is called once per cycle with the number of plugins to check.
	OnCountKnown(n int)

	// OnProgress reports overall cycle progress as a percentage in [0, 100].
	OnProgress(percent float64)

	// OnTransfer reports bytes received for an artifact download. It is only
	// called when the response declared its total size.
	OnTransfer(url string, loaded, total int64)

	// OnFinished is called once when the cycle ends, successfully or not.
	OnFinished()
}
