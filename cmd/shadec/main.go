// Command shadec compiles shader documents to GLSL.
//
// Usage:
//
//	shadec [global options] compile [options] <shader>
//	shadec check <shader>
//	shadec ast [--pass N] <shader>
//	shadec structure [--yaml] <shader>
//	shadec remap [--pass N] [--stage vertex|fragment] <shader> <log>
//	shadec remap --map <file.map> <log>
//	shadec init
//
// Global options:
//
//	--config <file>      Use specific config file
//	--no-config          Ignore config files
//	--log-level <level>  critical, error, warning, notice, info, debug or trace
//	--trace              Print error traces
//
// Config file:
//
//	shadec looks for shadec.yaml, .shadec.yaml or .shadecrc in the shader's
//	directory and its parents. Config file options are overridden by flags.
//
// Example shadec.yaml:
//
//	glslVersion: 330 core
//	attributes:
//	- name: position
//	  type: vec3
//	treeShaking: true
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	"github.com/HugoDaniel/shadec/internal/config"
	"github.com/HugoDaniel/shadec/internal/logger"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("failed")

func main() {
	if err := run(os.Args, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	return newApp(stdout, stderr).Run(args)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "shadec",
		Usage:     "shader document compiler",
		Version:   fmt.Sprintf("%s (%s)", version, commit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "use specific config `FILE`",
			},
			&cli.BoolFlag{
				Name:  "no-config",
				Usage: "ignore config files",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log `LEVEL` (overrides logLevel in the config file)",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print error traces",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetOutput(stderr, false)
			if level := c.String("log-level"); level != "" {
				return logger.SetLevel(level)
			}
			return nil
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil || errors.Is(err, errReported) {
				return
			}
			if c.Bool("trace") {
				tracerr.PrintSourceColor(err)
				return
			}
			fmt.Fprintf(stderr, "error: %v\n", tracerr.Unwrap(err))
		},
		Commands: []*cli.Command{
			compileCommand(),
			checkCommand(),
			astCommand(),
			structureCommand(),
			remapCommand(),
			initCommand(),
		},
	}
}

// ----------------------------------------------------------------------------
// Shared helpers
// ----------------------------------------------------------------------------

// loadConfig finds the configuration that applies to the shader at path.
// The --log-level flag wins over the file's logLevel.
func loadConfig(c *cli.Context, path string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case c.Bool("no-config"):
	case c.String("config") != "":
		loaded, err := config.LoadFile(c.String("config"))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		loaded, _, err := config.Load(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.Default()
	}

	if c.String("log-level") == "" {
		if err := logger.SetLevel(cfg.Level()); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// readShader reads the document named by the first argument.
func readShader(c *cli.Context) (string, string, error) {
	path := c.Args().First()
	if path == "" {
		return "", "", tracerr.New("no shader file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", tracerr.Wrap(err)
	}
	return path, string(data), nil
}

// sourceName is the shader file name without its directory and extension.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
