// Command flowkit runs the characters split/join pipeline, either over words
// given on the command line or stdin, or behind an HTTP ingest endpoint.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/bootstrap"
	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/pipeline"
	"github.com/kbukum/flowkit/server"
	"github.com/kbukum/flowkit/server/endpoint"
	"github.com/kbukum/flowkit/version"
)

const serviceName = "flowkit"

type flags struct {
	configFile string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Split words into characters, reject one, and join a report per word",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.configFile, "config", "c", "", "path to config.yml")
	root.PersistentFlags().StringVar(&f.envFile, "env", "", "path to a .env file")

	root.AddCommand(&cobra.Command{
		Use:   "run [words...]",
		Short: "Process the given words, or one word per stdin line, and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			words := args
			if len(words) == 0 {
				if words, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			return runWords(cmd.Context(), cfg, words, cmd.OutOrStdout())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Accept words on POST /ingest until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	})
	return root
}

func loadConfig(f flags) (*AppConfig, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	cfg, err := config.Load[AppConfig](serviceName, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = version.Version
	}
	return cfg, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func runWords(ctx context.Context, cfg *AppConfig, words []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	metrics, shutdown, err := initTelemetry(ctx, cfg, app.Logger)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	p, err := buildCharacters(cfg, out, app.Logger, metrics)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(p); err != nil {
		return err
	}

	inputs := make([]Word, len(words))
	for i, w := range words {
		inputs[i] = Word{Text: w}
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		return pipeline.Feed(ctx, p, pipeline.FromSlice(inputs))
	})
}

func serve(ctx context.Context, cfg *AppConfig, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	metrics, shutdown, err := initTelemetry(ctx, cfg, app.Logger)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	p, err := buildCharacters(cfg, out, app.Logger, metrics)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll, p)
	srv.Engine().POST("/ingest", endpoint.Ingest[Word](p.Post))

	// Registered before the server so the server stops first and the
	// pipeline drains what it already accepted.
	if err := app.RegisterComponent(p); err != nil {
		return err
	}
	if err := app.RegisterComponent(srv); err != nil {
		return err
	}
	return app.Run(ctx)
}
