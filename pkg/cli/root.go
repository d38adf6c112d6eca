package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/telekom/form-relay/pkg/api"
	"github.com/telekom/form-relay/pkg/captcha"
	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/mail"
	"github.com/telekom/form-relay/pkg/system"
	"github.com/telekom/form-relay/pkg/version"
)

// NewRootCommand builds the form-relay command tree. Running the root without a
// subcommand starts the server.
func NewRootCommand(out io.Writer) *cobra.Command {
	flags := &Config{}

	root := &cobra.Command{
		Use:           "form-relay",
		Short:         "Relay contact form submissions to an SMTP inbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	if out != nil {
		root.SetOut(out)
		root.SetErr(out)
	}
	flags.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(flags),
		newCheckConfigCommand(flags),
		newVersionCommand(),
	)
	return root
}

func newServeCommand(flags *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func newCheckConfigCommand(flags *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, "configuration OK")
			_, _ = fmt.Fprintf(w, "  listen:   %s (tls: %t)\n", cfg.Server.ListenAddress, cfg.Server.TLSCertFile != "")
			_, _ = fmt.Fprintf(w, "  smtp:     %s:%d (ssl: %t)\n", cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.SSL)
			_, _ = fmt.Fprintf(w, "  mail:     %s -> %s\n", cfg.Mail.From, cfg.Mail.To)
			_, _ = fmt.Fprintf(w, "  upload:   field %q, max %d bytes\n", cfg.Upload.FieldKey, cfg.Upload.MaxBytes())
			_, _ = fmt.Fprintf(w, "  captcha:  %t\n", cfg.Captcha.Enabled)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show form-relay version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()
			writer := cmd.OutOrStdout()

			switch outputFormat {
			case "json":
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			case "yaml":
				data, err := yaml.Marshal(info)
				if err != nil {
					return fmt.Errorf("failed to marshal to YAML: %w", err)
				}
				_, _ = fmt.Fprint(writer, string(data))
				return nil
			case "":
				_, _ = fmt.Fprintln(writer, info.String())
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want json or yaml)", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json, yaml")

	return cmd
}

// loadConfig fails fast: every missing or malformed setting is reported before
// anything listens.
func loadConfig(flags *Config) (config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, flags *Config) error {
	logger := system.NewLogger(flags.Debug)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	log.Infow("Starting form-relay", "version", version.Version, "commit", version.GitCommit)
	flags.Print(log)

	cfg, err := loadConfig(flags)
	if err != nil {
		log.Errorw("Refusing to start with invalid configuration", "error", err)
		return err
	}

	server, err := newServer(logger, cfg, flags)
	if err != nil {
		log.Errorw("Failed to set up server", "error", err)
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Listen(ctx)
}

func newServer(logger *zap.Logger, cfg config.Config, flags *Config) (*api.Server, error) {
	log := logger.Sugar()

	// verifier stays a nil interface when captcha is off
	var verifier captcha.Verifier
	if cfg.Captcha.Enabled {
		v, err := captcha.NewHCaptchaVerifier(cfg.Captcha, log)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	sender, err := mail.NewSender(cfg, log)
	if err != nil {
		return nil, err
	}

	server := api.NewServer(logger, cfg, flags.Debug).
		WithShutdownTimeout(ParseShutdownTimeout(flags.ShutdownTimeout, log))
	if err := server.RegisterAll([]api.APIController{
		api.NewSubmitController(log, cfg, verifier, sender),
	}); err != nil {
		return nil, err
	}
	return server, nil
}
