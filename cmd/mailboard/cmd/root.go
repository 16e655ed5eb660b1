package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/ai"
	"github.com/nhle/mailboard/internal/app"
	"github.com/nhle/mailboard/internal/auth"
	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/logging"
	"github.com/nhle/mailboard/internal/metrics"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/source"
	"github.com/nhle/mailboard/internal/source/email"
	"github.com/nhle/mailboard/internal/source/gmail"
	"github.com/nhle/mailboard/internal/store"
	appsync "github.com/nhle/mailboard/internal/sync"
)

var (
	cfgFile string
	dbPath  string
	logFile string
	cfg     *model.AppConfig
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailboard",
	Short: "Keyboard-driven terminal email dashboard",
	Long: `mailboard lists and filters your Gmail or IMAP inbox in the terminal.
With an Anthropic API key it also classifies messages by category and
priority, flags redundant mail and offers an assistant that summarizes,
extracts tasks and suggests filters.

Run "mailboard login" first to store credentials.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		if cfgFile == "" {
			cfgFile = model.DefaultConfigPath()
		}
		var err error
		cfg, err = model.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logFile != "" {
			cfg.Log.File = logFile
		}

		logger, err = logging.New(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if dbPath == "" {
		dbPath = model.DefaultDBPath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = st.Close() }()

	prefs, err := st.GetPreferences(ctx)
	if err != nil {
		logger.Warn("loading preferences", zap.Error(err))
		prefs = store.DefaultPreferences()
	}
	if prefs.PageSize > 0 {
		cfg.Provider.PageSize = prefs.PageSize
	}

	creds := credential.Keyring{}
	provider, err := newProvider(ctx, creds)
	if err != nil {
		return err
	}

	opts := app.Options{
		Provider:    provider,
		Store:       st,
		Config:      cfg,
		ConfigPath:  cfgFile,
		Credentials: creds,
		Preferences: prefs,
		Logger:      logger,
	}
	if client := newAIClient(creds); client != nil {
		opts.Classifier = ai.NewClassifier(client)
		opts.Assistant = ai.NewAssistant(client)
	}
	if cfg.Provider.PollIntervalSec > 0 {
		interval := time.Duration(cfg.Provider.PollIntervalSec) * time.Second
		opts.Poller = appsync.New(provider, interval, cfg.Provider.PageSize, logger.Named("poller"))
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, logger.Named("metrics"))
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting dashboard",
		zap.String("provider", provider.Name()),
		zap.Bool("assistant", opts.Assistant != nil),
	)

	p := tea.NewProgram(app.New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

// newProvider builds the configured mail provider.
func newProvider(ctx context.Context, creds credential.Store) (source.Provider, error) {
	switch cfg.Provider.Kind {
	case "imap":
		password, err := credential.Lookup(creds, credential.KeyIMAPPassword, "MAILBOARD_IMAP_PASSWORD")
		if err != nil {
			return nil, fmt.Errorf("read IMAP password: %w", err)
		}
		c := cfg.Provider.IMAP
		return email.NewProvider(email.Config{
			Host:     c.Host,
			Port:     c.Port,
			Username: c.Username,
			Password: password,
			Mailbox:  c.Mailbox,
			TLS:      c.TLS,
		}, logger.Named("imap")), nil

	case "gmail", "":
		var tp auth.Provider
		if tok := os.Getenv("MAILBOARD_TOKEN"); tok != "" {
			tp = auth.StaticProvider(tok)
		} else {
			oc, err := auth.LoadOAuthConfig(cfg.Provider.Gmail.ClientSecretPath)
			if err != nil {
				return nil, fmt.Errorf("%w\n\nDownload an OAuth client secret from Google Cloud, "+
					"save it as %s and run \"mailboard login\"", err, cfg.Provider.Gmail.ClientSecretPath)
			}
			tp = auth.NewKeyringProvider(oc, creds)
		}
		p, err := gmail.New(ctx, tp,
			gmail.WithConcurrency(cfg.Provider.Gmail.Concurrency),
			gmail.WithRate(cfg.Provider.Gmail.RequestsPerSec),
			gmail.WithLogger(logger.Named("gmail")),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown provider kind %q (want gmail or imap)", cfg.Provider.Kind)
}

// newAIClient returns nil when no API key is available; classification and
// the assistant are then disabled.
func newAIClient(creds credential.Store) *ai.Client {
	key, err := credential.Lookup(creds, credential.KeyAnthropic, "ANTHROPIC_API_KEY")
	if err != nil {
		logger.Warn("reading Anthropic API key", zap.Error(err))
		return nil
	}
	if key == "" {
		logger.Info("no Anthropic API key, AI features disabled")
		return nil
	}
	return ai.NewClient(key,
		ai.WithBaseURL(cfg.AI.BaseURL),
		ai.WithModel(cfg.AI.Model),
		ai.WithMaxTokens(cfg.AI.MaxTokens),
		ai.WithLogger(logger.Named("ai")),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/mailboard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database (default: ~/.config/mailboard/mailboard.db)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (overrides log.file)")
}
