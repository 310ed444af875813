package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"zeroir/internal/ir"
	"zeroir/internal/logging"
	"zeroir/internal/symbols"
	"zeroir/internal/ui/colorize"
	"zeroir/internal/zerobuild"
	zlog "zeroir/internal/zeroir/log"
	"zeroir/internal/zeroir/styles"
)

var rootCmd = &cobra.Command{
	Use:   "zeroir [file]",
	Short: "Build the structural model of a binary",
	Long: `Zeroir loads an ELF, PE or Mach-O binary and builds its structural model:
sections with their bytes, symbols, the entry block and auxiliary tables.
Subcommands decode the executable sections into canonical instructions.`,
	Example: `
# Print the model summary
zeroir /path/to/binary

# Dump the whole model
zeroir --dump /path/to/binary

# Canonical instructions, tab separated
zeroir decode --tabs /path/to/binary
  `,
	Version:      zerobuild.Version,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := startProfiles(cmd)
		if err != nil {
			return err
		}
		defer stop()

		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		m, err := env.build(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		dump, _ := cmd.Flags().GetBool("dump")
		asJSON, _ := cmd.Flags().GetBool("json")
		switch {
		case dump:
			cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 6}
			cfg.Fdump(out, m)
			return nil
		case asJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summarize(m, symbols.NewCache()))
		}
		return printSummary(out, summarize(m, symbols.NewCache()), env.color)
	},
}

// env carries the per-invocation configuration and logger.
type env struct {
	cfg    Config
	logger *logging.LoggerCloser
	color  bool
}

func (e *env) Close() error {
	return e.logger.Close()
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logFile, _ := cmd.Flags().GetString("log-file")
	zlog.Setup(logFile, cfg.Debug)

	logger := logging.NewLogger()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	color := !cfg.NoColor && colorize.Enabled() && isTerminal(cmd.OutOrStdout())
	return &env{cfg: cfg, logger: logger, color: color}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// build resolves file and constructs its model.
func (e *env) build(file string) (*ir.Model, error) {
	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", file)
		}
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	b := zerobuild.New(zerobuild.WithLogger(e.logger.Logger))
	m, err := b.Build(absPath)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return m, nil
}

func printSummary(w io.Writer, s Summary, color bool) error {
	if !color {
		return s.WritePlain(w)
	}
	width := 100
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(f.Fd()); err == nil && tw > 0 {
			width = tw
		}
	}
	r, err := styles.MarkdownRenderer(width)
	if err != nil {
		return s.WritePlain(w)
	}
	out, err := r.Render(s.Markdown())
	if err != nil {
		return s.WritePlain(w)
	}
	_, err = io.WriteString(w, out)
	return err
}

// startProfiles honours --cpuprofile and --memprofile. The returned
// function stops CPU profiling and writes the heap profile.
func startProfiles(cmd *cobra.Command) (func(), error) {
	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	memprofile, _ := cmd.Flags().GetString("memprofile")

	var cpu *os.File
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		cpu = f
	}
	return func() {
		if cpu != nil {
			pprof.StopCPUProfile()
			cpu.Close()
		}
		if memprofile == "" {
			return
		}
		f, err := os.Create(memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
		}
	}, nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a zeroir.json configuration file")
	rootCmd.PersistentFlags().StringP("data-dir", "D", "", "Custom zeroir data directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().Int("mode", 0, "Force decoder mode (32 or 64)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Sections swept in parallel (0 = unbounded)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable highlighting")
	rootCmd.PersistentFlags().String("log-file", "", "Write process logs to file instead of stderr")

	rootCmd.Flags().Bool("dump", false, "Dump the full model")
	rootCmd.Flags().BoolP("json", "j", false, "Output the summary as JSON")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

// plainOutput reports whether fang's styled output should be bypassed.
func plainOutput(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--json", "-j", "--dump", "--tabs":
			return true
		}
	}
	return !term.IsTerminal(os.Stdout.Fd())
}

func Execute() {
	if plainOutput(os.Args[1:]) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(zerobuild.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
