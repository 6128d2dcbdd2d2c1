package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/autopr/internal/config"
	"github.com/harrison/autopr/internal/editor"
	"github.com/harrison/autopr/internal/gitops"
	"github.com/harrison/autopr/internal/httpapi"
	"github.com/harrison/autopr/internal/logger"
	"github.com/harrison/autopr/internal/manager"
	"github.com/harrison/autopr/internal/pipeline"
	"github.com/harrison/autopr/internal/store"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task service",
		Long: `Start the HTTP service that accepts code-change tasks and executes them
in the background.

Configuration is loaded from the --config file if present; CLI flags
override configuration file settings. The GITHUB_TOKEN environment
variable overrides any token in the file.

Examples:
  autopr serve
  autopr serve --listen :9000 --store redis --redis-addr redis:6379
  autopr serve --config /etc/autopr.yaml --log-level debug`,
		Args: cobra.NoArgs,
		RunE: serveCommand,
	}

	cmd.Flags().String("config", "autopr.yaml", "Path to config file")
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().String("store", "", "Storage backend: memory, file, redis or sqlite")
	cmd.Flags().String("state-file", "", "State file path for the file store")
	cmd.Flags().String("redis-addr", "", "Redis address for the redis store")
	cmd.Flags().String("workdir", "", "Parent directory for task workspaces")
	cmd.Flags().String("log-level", "", "Log verbosity: debug, info, warn, error")

	return cmd
}

// serveCommand implements the serve command logic
func serveCommand(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	mergeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewConsole(os.Stdout, cfg.LogLevel)

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer st.Close()

	var producer editor.Producer
	switch cfg.Editor {
	case config.EditorCommand:
		producer = &editor.CommandProducer{Command: cfg.AgentCommand}
	default:
		producer = editor.NoteProducer{}
	}

	runner := &pipeline.Runner{
		Repo:           gitops.NewClient(cfg.GitHubToken),
		Editor:         producer,
		Store:          st,
		Log:            log,
		WorkDir:        cfg.WorkDir,
		StepTimeout:    cfg.StepTimeout,
		TestTimeout:    cfg.TestTimeout,
		CommitterName:  cfg.CommitterName,
		CommitterEmail: cfg.CommitterEmail,
	}
	mgr := manager.New(st, runner, log)

	// Tasks stranded by a previous process can never progress; fail them
	// before accepting new work.
	swept, err := mgr.SweepStale(cmd.Context())
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Warnf("marked %d stale task(s) as failed", swept)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("listening on %s (store: %s)", cfg.Listen, cfg.Store)
	server := httpapi.NewServer(mgr, log)
	if err := server.ListenAndServe(ctx, cfg.Listen); err != nil {
		return err
	}

	log.Infof("shutting down, waiting for in-flight tasks")
	mgr.Wait()
	return nil
}

// mergeFlags applies explicitly set CLI flags on top of the file config.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store = v
	}
	if v, _ := cmd.Flags().GetString("state-file"); v != "" {
		cfg.StateFile = v
	}
	if v, _ := cmd.Flags().GetString("redis-addr"); v != "" {
		cfg.RedisAddr = v
	}
	if v, _ := cmd.Flags().GetString("workdir"); v != "" {
		cfg.WorkDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
}
