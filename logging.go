package hdc

import "go.uber.org/zap"

// log is the package-level logger. It defaults to a no-op so the algebra
// stays silent (and allocation-free) unless a caller opts in. Nothing in
// bind/bundle/similarity ever logs — only construction and registry paths
// (§5: no suspension points, no I/O in the algebra itself).
var log = zap.NewNop()

// SetLogger installs a *zap.Logger for construction/registry diagnostics.
// Passing nil restores the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		log = zap.NewNop()
		return
	}
	log = l
}

// Logger returns the currently installed logger, so internal/<strategy>
// packages (which cannot see this package's unexported log var) can emit
// diagnostics at their own construction/registry-path call sites.
func Logger() *zap.Logger {
	return log
}
