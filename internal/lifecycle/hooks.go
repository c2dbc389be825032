package lifecycle

import "context"

// Phase orders shutdown hooks. Lower phases finish before higher ones start.
type Phase int

const (
	// PhaseDrain stops accepting work: HTTP server, webhook ingress.
	PhaseDrain Phase = iota
	// PhaseRelease closes shared resources: database pool, Redis, log files.
	PhaseRelease
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
