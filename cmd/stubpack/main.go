// Command stubpack builds and inspects packaged executables.
//
//	stubpack build -stub stub.exe -manifest stubpack.yaml -o app.exe
//	stubpack inspect app.exe
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/meigma/stubpack"
	"github.com/meigma/stubpack/manifest"
)

const usage = `usage:
  stubpack build -stub FILE -manifest FILE -o FILE [flags]
  stubpack inspect [-v] FILE
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "stubpack: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "build":
		return runBuild(ctx, args[1:], stdout, stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type buildConfig struct {
	stub        string
	manifest    string
	output      string
	compression string
	xz          string
	debug       bool
	verbose     bool
	cpuProfile  string
}

func runBuild(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cfg buildConfig
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.stub, "stub", "", "runtime stub executable")
	fs.StringVar(&cfg.manifest, "manifest", "stubpack.yaml", "manifest describing the packaged tree")
	fs.StringVar(&cfg.output, "o", "", "output executable")
	fs.StringVar(&cfg.compression, "compression", "lzma", "compression: none, lzma or zstd")
	fs.StringVar(&cfg.xz, "xz", "", `compress LZMA with an xz executable ("auto" to search PATH)`)
	fs.BoolVar(&cfg.debug, "debug", false, "make the executable log directives and keep its extraction directory")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.stub == "" || cfg.output == "" {
		fs.Usage()
		return errors.New("build: -stub and -o are required")
	}

	logger := newLogger(stderr, cfg.verbose)

	if cfg.cpuProfile != "" {
		f, err := os.Create(cfg.cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return err
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	opts, err := buildOptions(cfg, logger)
	if err != nil {
		return err
	}

	stub, err := os.ReadFile(cfg.stub)
	if err != nil {
		return fmt.Errorf("read stub: %w", err)
	}
	m, err := manifest.Load(cfg.manifest)
	if err != nil {
		return err
	}

	res, err := stubpack.BuildManifest(ctx, cfg.output, stub, m, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s size=%d digest=%s\n", res.Path, res.Size, res.Digest)
	return nil
}

func buildOptions(cfg buildConfig, logger *slog.Logger) ([]stubpack.BuildOption, error) {
	compression, err := stubpack.ParseCompression(cfg.compression)
	if err != nil {
		return nil, err
	}
	opts := []stubpack.BuildOption{
		stubpack.WithCompression(compression),
		stubpack.WithLogger(logger),
		stubpack.WithDebug(cfg.debug),
	}
	if cfg.xz != "" {
		if compression != stubpack.CompressionLZMA {
			return nil, fmt.Errorf("-xz requires lzma compression, not %s", compression)
		}
		path := cfg.xz
		if path == "auto" {
			path = ""
		}
		codec, err := stubpack.SystemLZMA(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, stubpack.WithCodec(codec))
	}
	if cfg.verbose {
		opts = append(opts, stubpack.WithProgress(func(e stubpack.ProgressEvent) {
			if e.Stage == stubpack.StageEncoding {
				logger.Debug("encoded", "path", e.Path, "files", e.FilesDone, "bytes", e.BytesDone)
			}
		}))
	}
	return opts, nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "list every directive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("inspect: expected one file")
	}

	image, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	info, err := stubpack.Inspect(image)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "stub:       %d bytes\n", info.StubSize)
	fmt.Fprintf(stdout, "section:    %d bytes\n", info.SectionSize)
	if info.SignatureSize > 0 {
		fmt.Fprintf(stdout, "signature:  %d bytes\n", info.SignatureSize)
	}
	if info.Compressed {
		fmt.Fprintf(stdout, "codec:      %s (%d -> %d bytes)\n", info.Codec, info.PayloadBytes, info.InflatedBytes)
	}
	fmt.Fprintf(stdout, "files:      %d\n", info.Files())
	if d, ok := info.Launch(); ok {
		fmt.Fprintf(stdout, "launch:     %s\n", printable(d.Image))
		fmt.Fprintf(stdout, "cmdline:    %s\n", printable(d.CommandLine))
	}
	if *verbose {
		for _, d := range info.Directives {
			fmt.Fprintln(stdout, d.String())
		}
	}
	return nil
}

// printable spells the install directory placeholder the way manifests do.
func printable(s string) string {
	return strings.ReplaceAll(s, stubpack.InstallDirPlaceholder, manifest.InstallDirToken)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
