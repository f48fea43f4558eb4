// Package capability probes which backend capabilities are actually usable
// in this deployment: which embedding variant (if any) and whether text
// completion is available.
//
// Candidates are tried once, in a fixed preference order (most capable
// first), and the result is cached for the process lifetime. "Function not
// available here" failures are swallowed and the next candidate is tried;
// auth and network failures are logged distinctly since they may be
// transient, but still count as unavailable. Re-probing requires a new
// Detector (in practice, a process restart).
package capability

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/holomentor/insight-go-sdk/completion"
	"github.com/holomentor/insight-go-sdk/memory"
)

// Profile is the process-wide capability snapshot, computed once.
type Profile struct {
	// EmbeddingAvailable reports whether any embedding variant probed
	// successfully.
	EmbeddingAvailable bool

	// EmbeddingVariant names the selected variant ("" when unavailable).
	EmbeddingVariant string

	// Dimensions is the selected variant's vector size (0 when unavailable).
	Dimensions int

	// CompletionAvailable reports whether the completion capability
	// answered its liveness probe.
	CompletionAvailable bool
}

// EmbedderCandidate is one entry of the ordered fallback table.
type EmbedderCandidate struct {
	// Name identifies the variant (recorded in Profile and on every
	// stored vector).
	Name string

	// Dimensions is the expected vector size. The probe cross-checks the
	// actual output against it.
	Dimensions int

	// Open constructs the embedder. Failing to construct (missing model
	// file, runtime library not installed) means the variant is not
	// usable here.
	Open func(ctx context.Context) (memory.Embedder, error)
}

// Config holds detector settings.
type Config struct {
	// ProbeTimeout bounds each individual probe call. Default: 10s.
	ProbeTimeout time.Duration
}

// Detector probes the candidate table and caches the resulting Profile.
// Detect is idempotent and safe to call from multiple goroutines; the
// probe runs at most once per Detector.
type Detector struct {
	candidates []EmbedderCandidate
	completer  completion.Completer // nil when no completion backend is configured
	config     Config

	once     sync.Once
	profile  Profile
	embedder memory.Embedder
}

// NewDetector creates a detector over an ordered candidate table and an
// optional completer.
func NewDetector(candidates []EmbedderCandidate, completer completion.Completer, config Config) *Detector {
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 10 * time.Second
	}
	return &Detector{
		candidates: candidates,
		completer:  completer,
		config:     config,
	}
}

// Detect returns the capability profile, probing on first call only.
func (d *Detector) Detect(ctx context.Context) Profile {
	d.once.Do(func() {
		d.probe(ctx)
	})
	return d.profile
}

// Embedder returns the selected embedder, or nil when no variant is
// usable. Call Detect first.
func (d *Detector) Embedder() memory.Embedder {
	d.once.Do(func() {
		d.probe(context.Background())
	})
	return d.embedder
}

func (d *Detector) probe(ctx context.Context) {
	for _, candidate := range d.candidates {
		embedder, ok := d.probeCandidate(ctx, candidate)
		if !ok {
			continue
		}

		d.embedder = embedder
		d.profile.EmbeddingAvailable = true
		d.profile.EmbeddingVariant = candidate.Name
		d.profile.Dimensions = candidate.Dimensions
		log.Printf("[CAPABILITY] Embedding variant selected: %s (%d dims)",
			candidate.Name, candidate.Dimensions)
		break
	}
	if !d.profile.EmbeddingAvailable {
		log.Printf("[CAPABILITY] No embedding variant available (tried %d candidates)", len(d.candidates))
	}

	d.profile.CompletionAvailable = d.probeCompletion(ctx)
	if d.profile.CompletionAvailable {
		log.Printf("[CAPABILITY] Completion capability available")
	} else {
		log.Printf("[CAPABILITY] Completion capability not available")
	}
}

// probeCandidate opens one candidate and runs a minimal no-op embedding.
func (d *Detector) probeCandidate(ctx context.Context, candidate EmbedderCandidate) (memory.Embedder, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, d.config.ProbeTimeout)
	defer cancel()

	embedder, err := candidate.Open(probeCtx)
	if err != nil {
		d.logProbeFailure(candidate.Name, err)
		return nil, false
	}

	vec, err := embedder.Embed(probeCtx, "probe")
	if err != nil {
		d.logProbeFailure(candidate.Name, err)
		closeEmbedder(embedder)
		return nil, false
	}

	if len(vec) != candidate.Dimensions {
		log.Printf("[CAPABILITY] Variant %s returned %d dims, expected %d; skipping",
			candidate.Name, len(vec), candidate.Dimensions)
		closeEmbedder(embedder)
		return nil, false
	}
	return embedder, true
}

// closeEmbedder releases a rejected candidate's resources. Some backends
// hold a runtime session or cache that outlives the failed probe.
func closeEmbedder(embedder memory.Embedder) {
	switch c := embedder.(type) {
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			log.Printf("[CAPABILITY] Closing rejected embedder failed: %v", err)
		}
	case interface{ Close() }:
		c.Close()
	}
}

func (d *Detector) probeCompletion(ctx context.Context) bool {
	if d.completer == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.config.ProbeTimeout)
	defer cancel()

	if err := d.completer.Probe(probeCtx); err != nil {
		d.logProbeFailure("completion", err)
		return false
	}
	return true
}

func (d *Detector) logProbeFailure(name string, err error) {
	if isUnsupported(err) {
		log.Printf("[CAPABILITY] %s not supported in this deployment: %v", name, err)
	} else {
		// Auth or network failures may be transient; log them apart so
		// operators can tell a misconfiguration from a missing feature.
		log.Printf("[CAPABILITY] %s probe failed (possibly transient): %v", name, err)
	}
}

// isUnsupported classifies "feature not available here" errors, as opposed
// to auth or network failures.
func isUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"unsupported",
		"unknown function",
		"not available",
		"not enabled",
		"not found",
		"no such",
		"not_found_error",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
