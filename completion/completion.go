// Package completion defines the text-completion capability consumed by
// the insight composer. The capability is external and optionally
// available; callers probe it at startup via the capability detector and
// fall back to deterministic summaries when it is degraded.
package completion

import "context"

// Completer is the completion capability contract.
type Completer interface {
	// Complete sends one prompt and returns the generated text.
	// No streaming; the composer issues exactly one call per summary.
	Complete(ctx context.Context, prompt string) (string, error)

	// Probe issues a minimal liveness check. A nil return means the
	// capability is usable in this deployment.
	Probe(ctx context.Context) error
}
