package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"

	"github.com/HugoDaniel/shadec/internal/backend"
	"github.com/HugoDaniel/shadec/internal/compiler"
	"github.com/HugoDaniel/shadec/internal/config"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/printer"
	"github.com/HugoDaniel/shadec/internal/sourcemap"
	"github.com/HugoDaniel/shadec/internal/structure"
	"github.com/HugoDaniel/shadec/pkg/api"
)

var optionFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "glsl-version",
		Usage: "`VERSION` written after #version",
	},
	&cli.BoolFlag{
		Name:  "minify",
		Usage: "print compact GLSL",
	},
	&cli.BoolFlag{
		Name:  "no-tree-shaking",
		Usage: "keep declarations that no entry point reaches",
	},
}

var validateFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "validate",
		Usage: "compile the generated stages with an offline GLSL validator",
	},
	&cli.StringFlag{
		Name:  "validator",
		Usage: "validator `PATH`",
		Value: backend.DefaultValidator,
	},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// options loads the config for path and applies the option flags.
func options(c *cli.Context, path string) (compiler.Options, error) {
	cfg, err := loadConfig(c, path)
	if err != nil {
		return compiler.Options{}, err
	}
	merge := config.MergeOptions{
		GLSLVersion:       c.String("glsl-version"),
		NoTreeShaking:     c.Bool("no-tree-shaking"),
		GenerateSourceMap: c.Bool("source-map"),
		SourceName:        sourceName(path),
	}
	if c.IsSet("minify") {
		minify := c.Bool("minify")
		merge.MinifyWhitespace = &minify
	}
	opts := cfg.Merge(merge)
	if c.Bool("validate") {
		opts.Backend = &backend.Validator{Path: c.String("validator")}
	}
	return opts, nil
}

// report prints compile diagnostics. Other errors are returned untouched.
func report(c *cli.Context, err error, source string) error {
	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		return err
	}
	fmt.Fprint(c.App.ErrWriter, cerr.Report(source))
	if cerr.Log != "" {
		fmt.Fprintf(c.App.ErrWriter, "\nbackend log:\n%s\n", cerr.Log)
	}
	return errReported
}

func warn(c *cli.Context, warnings []diagnostic.Diagnostic, source string) {
	if len(warnings) > 0 {
		fmt.Fprint(c.App.ErrWriter, diagnostic.Format(warnings, source))
	}
}

func shaderFiles(name string, p *compiler.Pass) (vert, frag string) {
	return fmt.Sprintf("%s.pass%d.vert", name, p.Index), fmt.Sprintf("%s.pass%d.frag", name, p.Index)
}

// ----------------------------------------------------------------------------
// compile
// ----------------------------------------------------------------------------

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "compile a shader document to GLSL",
		ArgsUsage: "<shader>",
		Flags: flags(optionFlags, validateFlags, []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write stage files to `DIR` instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "source-map",
				Usage: "write a source map next to every stage file",
			},
		}),
		Action: func(c *cli.Context) error {
			path, source, err := readShader(c)
			if err != nil {
				return err
			}
			opts, err := options(c, path)
			if err != nil {
				return err
			}
			shader, err := compiler.Compile(c.Context, source, opts)
			if err != nil {
				return report(c, err, source)
			}
			warn(c, shader.Warnings, source)

			dir := c.String("output")
			if dir == "" {
				for i := range shader.Passes {
					p := &shader.Passes[i]
					vert, frag := shaderFiles(opts.SourceName, p)
					fmt.Fprintf(c.App.Writer, "// %s\n%s\n// %s\n%s\n", vert, p.Vertex.Source, frag, p.Fragment.Source)
				}
				return nil
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return tracerr.Wrap(err)
			}
			for i := range shader.Passes {
				p := &shader.Passes[i]
				vert, frag := shaderFiles(opts.SourceName, p)
				if err := writeStage(filepath.Join(dir, vert), &p.Vertex); err != nil {
					return err
				}
				if err := writeStage(filepath.Join(dir, frag), &p.Fragment); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// writeStage writes one stage and, when present, its source map.
func writeStage(path string, s *compiler.Stage) error {
	source := s.Source
	if s.SourceMap != nil {
		source += "\n" + s.SourceMap.ToComment() + "\n"
		if err := os.WriteFile(path+".map", []byte(s.SourceMap.ToJSON()), 0o644); err != nil {
			return tracerr.Wrap(err)
		}
	}
	return tracerr.Wrap(os.WriteFile(path, []byte(source), 0o644))
}

// ----------------------------------------------------------------------------
// check
// ----------------------------------------------------------------------------

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "report diagnostics without writing output",
		ArgsUsage: "<shader>",
		Flags:     flags(validateFlags),
		Action: func(c *cli.Context) error {
			path, source, err := readShader(c)
			if err != nil {
				return err
			}
			opts, err := options(c, path)
			if err != nil {
				return err
			}
			shader, err := compiler.Compile(c.Context, source, opts)
			if err != nil {
				return report(c, err, source)
			}
			warn(c, shader.Warnings, source)
			fmt.Fprintf(c.App.Writer, "%s: ok, %d pass(es), %d uniform(s)\n", shader.Name, len(shader.Passes), len(shader.Uniforms))
			return nil
		},
	}
}

// ----------------------------------------------------------------------------
// ast
// ----------------------------------------------------------------------------

func astCommand() *cli.Command {
	return &cli.Command{
		Name:      "ast",
		Usage:     "dump the syntax tree of one pass",
		ArgsUsage: "<shader>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "pass",
				Usage: "pass `INDEX`",
			},
		},
		Action: func(c *cli.Context) error {
			path, source, err := readShader(c)
			if err != nil {
				return err
			}
			opts, err := options(c, path)
			if err != nil {
				return err
			}
			tree, err := compiler.New(opts).ParsePass(source, c.Int("pass"))
			if err != nil {
				return report(c, err, source)
			}
			fmt.Fprintln(c.App.Writer, tree.Dump(tree.Root))
			return nil
		},
	}
}

// ----------------------------------------------------------------------------
// structure
// ----------------------------------------------------------------------------

func structureCommand() *cli.Command {
	return &cli.Command{
		Name:      "structure",
		Usage:     "list the blocks of a shader document",
		ArgsUsage: "<shader>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yaml",
				Usage: "print the blocks and their sources as YAML",
			},
		},
		Action: func(c *cli.Context) error {
			_, source, err := readShader(c)
			if err != nil {
				return err
			}
			if c.Bool("yaml") {
				out, err := yaml.Marshal(api.Structure(source))
				if err != nil {
					return tracerr.Wrap(err)
				}
				_, err = c.App.Writer.Write(out)
				return err
			}

			cs, err := structure.Parse(source)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "shader %s\n", cs.TypeName)
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BLOCK\tLINE\tOFFSET\tBYTES")
			row := func(name string, b *structure.Block) {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", name, b.Line, b.Offset(), len(b.Source))
			}
			if cs.Uniforms != nil {
				row("Uniforms", cs.Uniforms)
			}
			for i := range cs.Passes {
				row(fmt.Sprintf("Pass %d", i), &cs.Passes[i])
			}
			return w.Flush()
		},
	}
}

// ----------------------------------------------------------------------------
// remap
// ----------------------------------------------------------------------------

func remapCommand() *cli.Command {
	return &cli.Command{
		Name:      "remap",
		Usage:     "rewrite a backend log to shader document lines",
		ArgsUsage: "<shader> <log> | --map <file.map> <log>",
		Flags: flags(optionFlags, []cli.Flag{
			&cli.IntFlag{
				Name:  "pass",
				Usage: "pass `INDEX` the log belongs to",
			},
			&cli.StringFlag{
				Name:  "stage",
				Usage: "`STAGE` the log belongs to (vertex or fragment)",
				Value: "fragment",
			},
			&cli.StringFlag{
				Name:  "map",
				Usage: "remap with a source map `FILE` instead of compiling the shader",
			},
		}),
		Action: func(c *cli.Context) error {
			var lines printer.LineMap
			var logPath string

			if mapPath := c.String("map"); mapPath != "" {
				logPath = c.Args().First()
				data, err := os.ReadFile(mapPath)
				if err != nil {
					return tracerr.Wrap(err)
				}
				sm, err := sourcemap.Parse(data)
				if err != nil {
					return tracerr.Errorf("%s: %v", mapPath, err)
				}
				if lines, err = sm.SourceLines(); err != nil {
					return tracerr.Errorf("%s: %v", mapPath, err)
				}
			} else {
				logPath = c.Args().Get(1)
				path, source, err := readShader(c)
				if err != nil {
					return err
				}
				if lines, err = stageLines(c, path, source); err != nil {
					return err
				}
			}

			if logPath == "" {
				return tracerr.New("no log file given")
			}
			log, err := os.ReadFile(logPath)
			if err != nil {
				return tracerr.Wrap(err)
			}
			fmt.Fprint(c.App.Writer, compiler.RemapLog(string(log), lines))
			return nil
		},
	}
}

// stageLines compiles source and returns the line map of the selected stage.
func stageLines(c *cli.Context, path, source string) (printer.LineMap, error) {
	opts, err := options(c, path)
	if err != nil {
		return nil, err
	}
	shader, err := compiler.Compile(c.Context, source, opts)
	if err != nil {
		return nil, report(c, err, source)
	}
	index := c.Int("pass")
	if index < 0 || index >= len(shader.Passes) {
		return nil, tracerr.Errorf("shader %s has no pass %d", shader.Name, index)
	}
	p := &shader.Passes[index]
	switch c.String("stage") {
	case "vertex":
		return p.Vertex.Lines, nil
	case "fragment":
		return p.Fragment.Lines, nil
	}
	return nil, tracerr.Errorf("unknown stage %q (expected vertex or fragment)", c.String("stage"))
}

// ----------------------------------------------------------------------------
// init
// ----------------------------------------------------------------------------

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "write a default shadec.yaml",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing config file",
			},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				dir = "."
			}
			path := filepath.Join(dir, config.ConfigFileNames[0])
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return tracerr.Errorf("%s already exists (use --force to overwrite)", path)
			}

			out, err := config.Default().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, out, 0o644); err != nil {
				return tracerr.Wrap(err)
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
			return nil
		},
	}
}
