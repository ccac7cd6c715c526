// Package logger configures leveled logging for the compiler packages.
//
// Every package gets its own capnslog package logger under the shadec repo,
// so verbosity can be raised for the whole compiler with one call. Loggers
// start at WARNING. Output goes wherever capnslog writes by default until a
// program calls SetOutput.
package logger

import (
	"io"
	"strings"
	"sync"

	"github.com/coreos/pkg/capnslog"
)

// Repo is the capnslog repository every package logger belongs to.
const Repo = "github.com/HugoDaniel/shadec"

// DefaultLevel is the level of every logger until SetLevel is called.
const DefaultLevel = capnslog.WARNING

var (
	mu    sync.Mutex
	level = DefaultLevel
)

// New returns the logger for one package, at the current level.
func New(pkg string) *capnslog.PackageLogger {
	mu.Lock()
	defer mu.Unlock()
	l := capnslog.NewPackageLogger(Repo, pkg)
	l.SetLevel(level)
	return l
}

// SetLevel sets the level of every package logger, including the ones
// created later. Accepted names are the capnslog ones: critical, error,
// warning, notice, info, debug and trace.
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	level = l
	if repo, err := capnslog.GetRepoLogger(Repo); err == nil {
		repo.SetRepoLogLevel(l)
	}
	return nil
}

// ParseLevel parses a level name in any case.
func ParseLevel(level string) (capnslog.LogLevel, error) {
	return capnslog.ParseLevel(strings.ToUpper(level))
}

// SetOutput redirects log output. Debug output also prints call sites.
func SetOutput(w io.Writer, debug bool) {
	capnslog.SetFormatter(capnslog.NewPrettyFormatter(w, debug))
}
