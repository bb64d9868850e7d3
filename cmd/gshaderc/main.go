// Command gshaderc compiles shader graph documents to GLSL.
//
// Usage:
//
//	gshaderc [options] <graph.toml>...
//
// Examples:
//
//	gshaderc color.toml                        # Print GLSL to stdout
//	gshaderc -o color.frag color.toml          # Write GLSL to a file
//	gshaderc -spirv -o color.spv color.toml    # Lower to SPIR-V with glslangValidator
//	gshaderc vert.toml frag.toml               # Write vert.vert and frag.frag with a shared push constant layout
//	gshaderc -watch -highlight color.toml      # Regenerate on every change
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/termenv"
	"github.com/soypat/gshader"
	"github.com/soypat/gshader/glspirv"
)

var (
	output    = flag.String("o", "", "output file (default: stdout, or next to each input when given several)")
	naming    = flag.String("naming", "indexed", "variable naming style: indexed or descriptive")
	target    = flag.String("target", "vulkan", "graphics API dialect: vulkan or opengl")
	pcBinding = flag.Int("pcbinding", 0, "uniform binding of push constants for the opengl target")
	spirv     = flag.Bool("spirv", false, "lower GLSL to SPIR-V with glslangValidator")
	validator = flag.String("validator", glspirv.DefaultValidatorPath, "glslangValidator executable")
	highlight = flag.Bool("highlight", false, "syntax highlight GLSL written to a terminal")
	watch     = flag.Bool("watch", false, "regenerate when input files change")
	verbose   = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := newConfig(flag.Args(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		usage()
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = cfg.run(ctx, os.Stdout)
	if err != nil && !*watch {
		logger.Error("compile", slog.String("err", err.Error()))
		os.Exit(1)
	} else if err != nil {
		logger.Error("compile", slog.String("err", err.Error()))
	}
	if *watch {
		err = cfg.watch(ctx, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watch", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: gshaderc [options] <graph.toml>...\n\nOptions:\n")
	flag.PrintDefaults()
}

type config struct {
	inputs    []string
	output    string
	opts      gshader.Options
	compiler  glspirv.Compiler
	highlight bool
	logger    *slog.Logger
}

func newConfig(inputs []string, logger *slog.Logger) (*config, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no input file specified")
	} else if len(inputs) > 1 && *output != "" {
		return nil, errors.New("-o requires a single input")
	}
	ns, err := gshader.ParseNamingStyle(*naming)
	if err != nil {
		return nil, err
	}
	tgt, err := gshader.ParseTarget(*target)
	if err != nil {
		return nil, err
	}
	cfg := &config{
		inputs:    inputs,
		output:    *output,
		highlight: *highlight && !*spirv,
		logger:    logger,
		opts: gshader.Options{
			Naming:              ns,
			Target:              tgt,
			PushConstantBinding: *pcBinding,
			Logger:              logger,
		},
	}
	if *spirv {
		cfg.compiler = &glspirv.Validator{Path: *validator, Logger: logger}
	}
	return cfg, nil
}

// run compiles all inputs. Several inputs share one push constant layout.
func (cfg *config) run(ctx context.Context, stdout io.Writer) error {
	scripts := make([]*gshader.Script, len(cfg.inputs))
	for i, path := range cfg.inputs {
		fp, err := os.Open(path)
		if err != nil {
			return err
		}
		scripts[i], err = loadGraph(fp)
		fp.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	layout, err := gshader.NewPushConstantLayout(scripts...)
	if err != nil {
		return err
	}
	opts := cfg.opts
	opts.PushConstants = layout
	gen := gshader.NewGenerator(opts)
	for i, s := range scripts {
		src, err := gen.Generate(s)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.inputs[i], err)
		}
		if cfg.compiler != nil {
			src, err = cfg.compiler.Compile(ctx, src, s.Stage())
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.inputs[i], err)
			}
		}
		dst := cfg.output
		if len(scripts) > 1 {
			dst = cfg.outputPath(cfg.inputs[i], s.Stage())
		}
		if dst == "" {
			err = cfg.writeStdout(stdout, src)
		} else {
			err = os.WriteFile(dst, src, 0644)
			cfg.logger.Info("wrote", slog.String("file", dst), slog.Int("bytes", len(src)))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// outputPath replaces the extension of input by the stage extension, or .spv when lowering.
func (cfg *config) outputPath(input string, stage gshader.Stage) string {
	ext := ".frag"
	if stage == gshader.StageVertex {
		ext = ".vert"
	}
	if cfg.compiler != nil {
		ext = "." + ext[1:] + ".spv"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func (cfg *config) writeStdout(w io.Writer, src []byte) error {
	if !cfg.highlight {
		_, err := w.Write(src)
		return err
	}
	return highlightGLSL(w, src, termenv.EnvColorProfile())
}

// highlightGLSL writes src with terminal colour escapes for the profile.
func highlightGLSL(w io.Writer, src []byte, profile termenv.Profile) error {
	var formatterName string
	switch profile {
	case termenv.TrueColor:
		formatterName = "terminal16m"
	case termenv.ANSI256:
		formatterName = "terminal256"
	case termenv.ANSI:
		formatterName = "terminal16"
	default:
		_, err := w.Write(src)
		return err
	}
	lexer := chroma.Coalesce(lexers.Get("glsl"))
	it, err := lexer.Tokenise(nil, string(src))
	if err != nil {
		return err
	}
	return formatters.Get(formatterName).Format(w, styles.Get("monokai"), it)
}

// watch reruns cfg on every write to an input until ctx is done.
func (cfg *config) watch(ctx context.Context, stdout io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Directories are watched, inputs are filtered by name.
	watched := make(map[string]bool)
	inputs := make(map[string]bool)
	for _, in := range cfg.inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		inputs[abs] = true
		dir := filepath.Dir(abs)
		if watched[dir] {
			continue
		}
		err = watcher.Add(dir)
		if err != nil {
			return err
		}
		watched[dir] = true
	}
	cfg.logger.Info("watching", slog.Int("files", len(inputs)))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !inputs[abs] || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg.logger.Debug("change", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			var buf bytes.Buffer
			err = cfg.run(ctx, &buf)
			if err != nil {
				cfg.logger.Error("compile", slog.String("err", err.Error()))
				continue
			}
			_, err = stdout.Write(buf.Bytes())
			if err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cfg.logger.Error("watcher", slog.String("err", err.Error()))
		}
	}
}
