package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/devhatch/devhatch/internal/config"
	"github.com/devhatch/devhatch/internal/logger"
	"github.com/devhatch/devhatch/internal/manager"
	"github.com/devhatch/devhatch/internal/metrics"
	"github.com/devhatch/devhatch/internal/server"
	"github.com/devhatch/devhatch/internal/store"
	"github.com/devhatch/devhatch/internal/store/factory"
)

var version = "dev"

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// StartFlags holds per-invocation overrides for the start command.
type StartFlags struct {
	Terminal  bool
	NoBrowser bool
}

// HistoryFlags holds flags for the history command.
type HistoryFlags struct {
	Limit int
}

// URLFlags holds flags for the url command.
type URLFlags struct {
	APIURL string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	startFlags := &StartFlags{}
	historyFlags := &HistoryFlags{}
	urlFlags := &URLFlags{}

	root := &cobra.Command{
		Use:   "devhatch",
		Short: "Dev-server process manager for project dashboards",
		Long: `Devhatch launches, tracks and terminates per-project development
servers (npm run dev and friends), scraping their readiness URL from the
output stream.

Examples:
  devhatch serve                 # run the dashboard API
  devhatch start web             # run a configured project in the foreground
  devhatch start web --terminal  # open it in a new terminal window instead
  devhatch stop web
  devhatch status`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "devhatch.toml", "path to TOML config file")

	root.AddCommand(
		createServeCommand(globalFlags),
		createStartCommand(globalFlags, startFlags),
		createStopCommand(globalFlags),
		createStatusCommand(globalFlags),
		createURLCommand(globalFlags, urlFlags),
		createHistoryCommand(globalFlags, historyFlags),
		createVersionCommand(),
	)
	return root
}

func createServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the dashboard frontend",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
}

func createStartCommand(flags *GlobalFlags, sf *StartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <project>",
		Short: "Start a configured project's dev server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runStart(flags, sf, args[0])
		},
	}
	cmd.Flags().BoolVar(&sf.Terminal, "terminal", false, "open in a new terminal window")
	cmd.Flags().BoolVar(&sf.NoBrowser, "no-browser", false, "do not open the browser on URL detection")
	return cmd
}

func createStopCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <project>",
		Short: "Stop a project's dev server, sweeping the process table for strays",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runStop(flags, args[0])
		},
	}
}

func createStatusCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show liveness of every configured project",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStatus(flags)
		},
	}
}

func createURLCommand(flags *GlobalFlags, uf *URLFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url <project>",
		Short: "Query a running devhatch daemon for a project's detected URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runURL(flags, uf, args[0])
		},
	}
	cmd.Flags().StringVar(&uf.APIURL, "api-url", "", "daemon API base URL (default derived from config)")
	return cmd
}

func createHistoryCommand(flags *GlobalFlags, hf *HistoryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [project]",
		Short: "List recent dev-server runs from the history store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sel := ""
			if len(args) == 1 {
				sel = args[0]
			}
			return runHistory(flags, hf, sel)
		},
	}
	cmd.Flags().IntVar(&hf.Limit, "limit", 20, "maximum rows to list")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devhatch version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("devhatch", version)
		},
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.History.DSN == "" {
		return nil, nil
	}
	st, err := factory.NewFromDSN(cfg.History.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func buildManager(cfg *config.Config, log *slog.Logger, st store.Store) *manager.Manager {
	return manager.New(manager.Config{
		Runtimes:      cfg.Runtimes,
		DetectTimeout: cfg.DetectTimeout,
		Capture:       cfg.Log.Capture,
		Logger:        log,
		Store:         st,
	})
}

func runServe(flags *GlobalFlags) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	log := logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Log.Color)
	slog.SetDefault(log)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	mgr := buildManager(cfg, log, st)
	srv := server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, mgr)
	log.Info("devhatch api listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	mgr.Shutdown(ctx)
	return nil
}

func runStart(flags *GlobalFlags, sf *StartFlags, sel string) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	p, ok := cfg.FindProject(sel)
	if !ok {
		return fmt.Errorf("unknown project %q", sel)
	}
	log := logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Log.Color)
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	mgr := buildManager(cfg, log, st)

	opts := manager.Options{
		OpenInBrowser:  p.BrowserEnabled() && !sf.NoBrowser,
		OpenInTerminal: p.OpenInTerminal || sf.Terminal,
	}
	ctx := context.Background()
	res := mgr.StartDevServer(ctx, p.Path, p.Command, opts)
	if !res.Success {
		return fmt.Errorf("start %s: %s", p.Name, res.Error)
	}

	if opts.OpenInTerminal {
		fmt.Printf("%s opened in a new terminal window\n", p.Name)
		return nil
	}

	fmt.Printf("%s running, press Ctrl-C to stop\n", p.Name)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	printed := false
	for {
		select {
		case <-sig:
			mgr.StopDevServer(ctx, p.Path)
			mgr.Shutdown(ctx)
			return nil
		case <-tick.C:
			if !printed {
				if u, ok := mgr.DetectedURL(p.Path); ok {
					fmt.Printf("%s ready at %s\n", p.Name, u)
					printed = true
				}
			}
			if len(mgr.Statuses(ctx)) == 0 {
				mgr.Shutdown(ctx)
				return fmt.Errorf("%s exited", p.Name)
			}
		}
	}
}

func runStop(flags *GlobalFlags, sel string) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	p, ok := cfg.FindProject(sel)
	if !ok {
		return fmt.Errorf("unknown project %q", sel)
	}
	log := logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Log.Color)
	mgr := buildManager(cfg, log, nil)

	res := mgr.StopDevServer(context.Background(), p.Path)
	if !res.Success {
		return fmt.Errorf("stop %s: %s", p.Name, res.Error)
	}
	fmt.Printf("%s stopped\n", p.Name)
	return nil
}

func runStatus(flags *GlobalFlags) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	log := logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Log.Color)
	mgr := buildManager(cfg, log, nil)

	ctx := context.Background()
	for _, p := range cfg.Projects {
		state := "stopped"
		if mgr.IsProcessRunning(ctx, p.Path) {
			state = "running"
		}
		fmt.Printf("%-20s %-8s %s\n", p.Name, state, p.Path)
	}
	return nil
}

func runURL(flags *GlobalFlags, uf *URLFlags, sel string) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	p, ok := cfg.FindProject(sel)
	if !ok {
		return fmt.Errorf("unknown project %q", sel)
	}
	base := uf.APIURL
	if base == "" {
		base = "http://" + cfg.Server.Listen + cfg.Server.BasePath
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(base + "/servers/url?key=" + url.QueryEscape(p.Path))
	if err != nil {
		return fmt.Errorf("query daemon: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	var out struct {
		URL     string `json:"url"`
		Running bool   `json:"running"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out.URL == "" {
		fmt.Printf("%s: no URL detected (running=%v)\n", p.Name, out.Running)
		return nil
	}
	fmt.Println(out.URL)
	return nil
}

func runHistory(flags *GlobalFlags, hf *HistoryFlags, sel string) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.History.DSN == "" {
		return fmt.Errorf("history is disabled: set history.dsn in %s", flags.ConfigPath)
	}
	key := ""
	if sel != "" {
		p, ok := cfg.FindProject(sel)
		if !ok {
			return fmt.Errorf("unknown project %q", sel)
		}
		key = p.Path
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	recs, err := st.Recent(context.Background(), key, hf.Limit)
	if err != nil {
		return err
	}
	for _, r := range recs {
		stopped := "running"
		if r.StoppedAt.Valid {
			stopped = r.StoppedAt.Time.Local().Format(time.RFC3339)
		}
		u := "-"
		if r.URL.Valid {
			u = r.URL.String
		}
		fmt.Printf("%-6d %-8s %-25s %-25s %s\n", r.PID, r.Mode, r.StartedAt.Local().Format(time.RFC3339), stopped, u)
	}
	return nil
}
