package provider

import "sync/atomic"

// Readiness is embedded by concrete providers to back IsAvailable
type Readiness struct {
	ready atomic.Bool
}

// MarkReady flags the provider as initialized
func (r *Readiness) MarkReady() { r.ready.Store(true) }

// MarkUnavailable clears the ready flag
func (r *Readiness) MarkUnavailable() { r.ready.Store(false) }

// IsAvailable reports whether MarkReady was called
func (r *Readiness) IsAvailable() bool { return r.ready.Load() }
