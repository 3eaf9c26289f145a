package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"blockstream/internal/blocks"
	"blockstream/internal/config"
	"blockstream/internal/display"
	"blockstream/internal/llm"
	"blockstream/internal/logging"
	"blockstream/internal/parser"
	"blockstream/internal/render"
	"blockstream/internal/scheduler"
	"blockstream/internal/session"
	"blockstream/internal/transcript"
	"blockstream/internal/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	activeProfile string
	verbose       bool
	jsonOutput    bool

	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blockstream",
		Short: "Parse streamed model output into renderable blocks",
		Long: `blockstream turns a token-streamed model response into an ordered list of
prose and structured blocks (charts, KPIs, gantt timelines, thought and
tool-call chains, tables) and re-renders it as the stream grows.

Examples:
  blockstream parse response.txt
  blockstream replay                          # built-in demo transcript
  blockstream replay a.yaml b.txt --chunk 12  # several streams at once
  blockstream ask "How did revenue trend this quarter?"
  blockstream watch "Plot signups by week"
  blockstream --profile work set provider openai`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&activeProfile, "profile", "", "use a named config profile")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "print JSON instead of text")

	root.AddCommand(
		newParseCmd(),
		newReplayCmd(),
		newAskCmd(),
		newWatchCmd(),
		newConfigCmd(),
		newSetCmd(),
		newProfilesCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the active profile and builds the logger.
func setup() error {
	c, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	cfg = c

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	l, err := logging.New(level, cfg.LogFile)
	if err != nil {
		return err
	}
	logger = l.With(zap.String("profile", config.ProfileName(activeProfile)))
	return nil
}

func schedulerOptions(name string, chainProgress bool) []scheduler.Option {
	return []scheduler.Option{
		scheduler.WithInterval(cfg.Interval()),
		scheduler.WithSmallGrowth(cfg.SmallGrowth),
		scheduler.WithIdleFactor(cfg.IdleFactor),
		scheduler.WithChainProgress(chainProgress),
		scheduler.WithLogger(logger.With(zap.String("stream", name))),
	}
}

// ─── parse ──────────────────────────────────────────────────────────────────

func newParseCmd() *cobra.Command {
	var rendered bool
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse a complete response and list its blocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			buf, err := readInput(path, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return cmdParse(cmd.OutOrStdout(), buf, rendered, terminalWidth())
		},
	}
	cmd.Flags().BoolVarP(&rendered, "render", "r", false, "render blocks for the terminal")
	return cmd
}

func cmdParse(w io.Writer, buf string, rendered bool, width int) error {
	bs := parser.Parse(buf)
	logger.Debug("parsed", zap.Int("bytes", len(buf)), zap.Int("blocks", len(bs)))

	switch {
	case jsonOutput:
		return printJSON(w, bs)
	case rendered:
		_, err := fmt.Fprintln(w, render.Blocks(bs, width))
		return err
	}
	for i, b := range bs {
		if _, err := fmt.Fprintf(w, "%3d  %s\n", i, display.Summary(b)); err != nil {
			return err
		}
	}
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

// ─── replay ─────────────────────────────────────────────────────────────────

type replayOptions struct {
	chunk       int
	delay       time.Duration
	speed       float64
	progress    bool
	concurrency int
}

type replayResult struct {
	name    string
	blocks  []blocks.Block
	flushes int
	elapsed time.Duration
	err     error
}

func newReplayCmd() *cobra.Command {
	opts := replayOptions{}
	var rendered bool
	var delayMS int
	cmd := &cobra.Command{
		Use:   "replay [transcript.yaml|file ...]",
		Short: "Stream recorded or plain-text responses through the scheduler",
		Long: `Replays each input as a live stream. YAML files are transcripts with
per-chunk delays; any other file is split into --chunk byte pieces.
Several inputs run concurrently. With no input the built-in demo plays.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.delay = time.Duration(delayMS) * time.Millisecond
			ts, err := loadTranscripts(args, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			results, runErr := replayAll(ctx, ts, opts)
			printReplay(cmd.OutOrStdout(), results, rendered)
			return runErr
		},
	}
	cmd.Flags().IntVar(&opts.chunk, "chunk", 16, "chunk size in bytes for plain-text inputs")
	cmd.Flags().IntVar(&delayMS, "delay", 40, "delay in ms between plain-text chunks")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "delay multiplier, 0 replays instantly")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "advance thought-chain steps while streaming")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "maximum streams at once")
	cmd.Flags().BoolVarP(&rendered, "render", "r", false, "render final blocks for the terminal")
	return cmd
}

func loadTranscripts(paths []string, opts replayOptions) ([]*transcript.Transcript, error) {
	if len(paths) == 0 {
		t, err := transcript.Load("")
		if err != nil {
			return nil, err
		}
		return []*transcript.Transcript{t}, nil
	}

	out := make([]*transcript.Transcript, 0, len(paths))
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			t, err := transcript.Load(p)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		default:
			buf, err := readInput(p, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, transcript.FromText(p, buf, opts.chunk, opts.delay))
		}
	}
	return out, nil
}

func replayAll(ctx context.Context, ts []*transcript.Transcript, opts replayOptions) ([]replayResult, error) {
	jobs := make([]session.Job, len(ts))
	for i, t := range ts {
		player := transcript.NewPlayer(t)
		player.Speed = opts.speed
		jobs[i] = session.Job{
			Name:      t.Name,
			Provider:  player,
			Scheduler: scheduler.New(nil, schedulerOptions(t.Name, opts.progress)...),
		}
	}

	start := time.Now()
	results, err := session.RunAll(ctx, jobs, opts.concurrency)
	elapsed := time.Since(start)

	out := make([]replayResult, len(jobs))
	for i, j := range jobs {
		out[i] = replayResult{
			name:    j.Name,
			blocks:  j.Scheduler.Blocks(),
			flushes: j.Scheduler.Flushes(),
			elapsed: elapsed,
			err:     results[i].Err,
		}
	}
	return out, err
}

func printReplay(w io.Writer, results []replayResult, rendered bool) {
	width := terminalWidth()
	for _, r := range results {
		fmt.Fprintf(w, "\n%s%s%s  %s  %s%d blocks · %d updates · %s%s\n",
			display.Bold, r.name, display.Reset,
			display.OutcomeLabel(r.err),
			display.Dim, len(r.blocks), r.flushes, display.FormatDuration(r.elapsed), display.Reset)
		if r.err != nil && !errors.Is(r.err, scheduler.ErrCancelled) {
			fmt.Fprintf(w, "  %s%s%s\n", display.Red, r.err, display.Reset)
			continue
		}
		if rendered {
			fmt.Fprintln(w, render.Blocks(r.blocks, width))
			continue
		}
		for i, b := range r.blocks {
			fmt.Fprintf(w, "  %3d  %s\n", i, display.Summary(b))
		}
	}
}

// ─── ask ────────────────────────────────────────────────────────────────────

func newAskCmd() *cobra.Command {
	var progress bool
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Stream a response from the configured model and print its blocks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdAsk(cmd.Context(), strings.Join(args, " "), progress)
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", true, "advance thought-chain steps while streaming")
	return cmd
}

func cmdAsk(ctx context.Context, prompt string, progress bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := llm.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	updates := 0
	s := scheduler.New(func(bs []blocks.Block) {
		updates++
		display.Spinner(fmt.Sprintf("Streaming from %s... %d blocks, %d updates", p.Name(), len(bs), updates))
	}, schedulerOptions("ask", progress)...)

	start := time.Now()
	err = session.Run(ctx, p, llm.NewRequest(cfg, prompt), s)
	display.ClearLine()
	if errors.Is(err, scheduler.ErrCancelled) {
		display.Warn("Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(os.Stdout, s.Blocks())
	}
	fmt.Println(render.Blocks(s.Blocks(), terminalWidth()))
	fmt.Println()
	display.Info("Model:", p.Name()+"/"+cfg.Model)
	display.Info("Time:", display.FormatDuration(time.Since(start)))
	return nil
}

// ─── watch ──────────────────────────────────────────────────────────────────

func newWatchCmd() *cobra.Command {
	var from string
	var progress bool
	cmd := &cobra.Command{
		Use:   "watch [prompt]",
		Short: "Stream a response into a live full-screen view",
		Long: `Streams a response into a live view that re-renders on every flush.
Use --transcript to watch a recorded stream instead of calling the model
(an empty value plays the built-in demo).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := llm.NewRequest(cfg, strings.Join(args, " "))

			var p llm.Provider
			if cmd.Flags().Changed("transcript") {
				t, err := transcript.Load(from)
				if err != nil {
					return err
				}
				p = transcript.NewPlayer(t)
				if req.Prompt == "" {
					req.Prompt = t.Name
				}
			} else {
				if len(args) == 0 {
					return errors.New("watch needs a prompt or --transcript")
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				var err error
				if p, err = llm.New(cfg, logger); err != nil {
					return err
				}
			}

			return tui.Run(cmd.Context(), tui.Options{
				Provider:  p,
				Request:   req,
				Scheduler: schedulerOptions("watch", progress),
			})
		},
	}
	cmd.Flags().StringVar(&from, "transcript", "", "replay a transcript file instead of calling the model")
	cmd.Flags().BoolVar(&progress, "progress", true, "advance thought-chain steps while streaming")
	return cmd
}

// ─── config ─────────────────────────────────────────────────────────────────

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdConfig(cmd.OutOrStdout())
		},
	}
}

func cmdConfig(w io.Writer) error {
	values := map[string]string{}
	for _, k := range config.Keys() {
		v, err := cfg.Get(k)
		if err != nil {
			return err
		}
		if k == "api_key" {
			v = maskSecret(v)
		}
		values[k] = v
	}

	if jsonOutput {
		return printJSON(w, values)
	}

	display.Header("blockstream configuration")
	display.Info("Profile:", config.ProfileName(activeProfile))
	for _, k := range config.Keys() {
		v := values[k]
		if v == "" {
			v = display.Dim + "(not set)" + display.Reset
		}
		display.Info(k+":", v)
	}
	if cfg.Provider == config.ProviderCompat || cfg.Provider == "" {
		display.Info("endpoint:", cfg.CompatURL())
	}
	fmt.Println()
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	end := min(6, len(s)/2)
	return s[:end] + "..."
}

// ─── set ────────────────────────────────────────────────────────────────────

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration key for the active profile",
		Long:  "Keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			if key == "api_key" {
				value = maskSecret(value)
			}
			display.Success(fmt.Sprintf("%s set to %s", key, value))
			return nil
		},
	}
}

// ─── profiles ───────────────────────────────────────────────────────────────

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List config profiles",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return cmdProfiles()
		},
	}
}

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── version ────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func versionString() string {
	s := "blockstream " + version
	if commit != "none" {
		s += "\n  commit: " + commit + "\n  built:  " + date
	}
	return s
}

// ─── helpers ────────────────────────────────────────────────────────────────

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return min(w, 120)
	}
	return 80
}
