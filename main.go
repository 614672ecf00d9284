package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/envelope-zero/planner/internal/compliance"
	"github.com/envelope-zero/planner/internal/config"
	"github.com/envelope-zero/planner/internal/conflict"
	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/internal/ingest"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/router"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/envelope-zero/planner/internal/scheduler"
	"github.com/envelope-zero/planner/internal/semantic"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//go:generate swag init

// @title			Budget Planner
// @description	Collects, validates and balances the budget entries of the departments of a ministry.
// @BasePath		/
func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "planner",
		Short: "Budget planning for the departments of a ministry",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PLANNER_CONFIG"), "path to a YAML configuration file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(ingestCmd(&configPath))
	rootCmd.AddCommand(validateCmd(&configPath))
	rootCmd.AddCommand(detectConflictsCmd(&configPath))
	rootCmd.AddCommand(seedCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging configures gin and zerolog from the environment.
func setupLogging() {
	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()
}

// setup loads the configuration and the rules and connects to the database.
func setup(configPath string) (*config.Config, rules.Rules, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, rules.Rules{}, err
	}

	r, err := cfg.LoadRules()
	if err != nil {
		return nil, rules.Rules{}, err
	}

	err = os.MkdirAll(filepath.Dir(cfg.Database.Path), os.ModePerm)
	if err != nil {
		return nil, rules.Rules{}, err
	}

	models.SlowQueryThreshold = cfg.Database.SlowQuery
	err = models.Connect(cfg.Database.Path)
	if err != nil {
		return nil, rules.Rules{}, err
	}

	return cfg, r, nil
}

// seed creates the default departments and the global limit of the
// first planning year.
func seed(cfg *config.Config, r rules.Rules) error {
	_, err := ingest.New(r).SeedDepartments(models.DB)
	if err != nil {
		return err
	}

	if cfg.Planning.GlobalLimit <= 0 {
		return nil
	}

	_, err = models.GlobalLimitForYear(models.DB, cfg.Planning.FirstYear)
	if err == nil {
		return nil
	} else if !errors.Is(err, models.ErrResourceNotFound) {
		return err
	}

	_, err = ingest.EnsureGlobalLimit(models.DB, cfg.Planning.FirstYear, decimal.NewFromFloat(cfg.Planning.GlobalLimit))
	return err
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, r, err := setup(*configPath)
			if err != nil {
				return err
			}

			err = seed(cfg, r)
			if err != nil {
				return err
			}

			apiURL, err := url.Parse(cfg.Server.APIURL)
			if err != nil {
				return fmt.Errorf("server.api_url is not a valid URL: %w", err)
			}

			engine, teardown, err := router.Config(apiURL)
			if err != nil {
				return err
			}
			defer teardown()

			co := v1.New(r, semantic.FromConfig(r, cfg.Semantic.APIKey, cfg.Semantic.Model, cfg.Semantic.MaxTokens))
			router.AttachRoutes(co, engine.Group(apiURL.Path))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Scheduler.Enabled {
				s, err := scheduler.New(models.DB, cfg.Scheduler.Spec)
				if err != nil {
					return err
				}

				s.Start()
				defer func() { <-s.Stop().Done() }()
			}

			srv := &http.Server{
				Addr:              cfg.Server.Listen,
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				log.Info().Str("listen", cfg.Server.Listen).Msg("starting server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("server failed")
				}
			}()

			<-ctx.Done()
			log.Info().Msg("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		},
	}
}

func ingestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Import the entries of a .xlsx or .csv submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, r, err := setup(*configPath)
			if err != nil {
				return err
			}

			err = seed(cfg, r)
			if err != nil {
				return err
			}

			result, err := ingest.New(r).IngestFile(models.DB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d rows: %d created, %d skipped\n", result.Processed, result.Created, result.Skipped)
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "  %s\n", w)
			}

			return nil
		},
	}
}

func validateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate all entries against the classification rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, r, err := setup(*configPath)
			if err != nil {
				return err
			}

			results, err := compliance.New(r).ValidateAll(models.DB)
			if err != nil {
				return err
			}

			s := compliance.Summarize(results)
			fmt.Fprintf(cmd.OutOrStdout(), "Validated %d entries, %d with warnings (compliance rate %.1f%%)\n",
				s.Validated, s.WithWarnings, s.ComplianceRate)

			return nil
		},
	}
}

func detectConflictsCmd(configPath *string) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "detect-conflicts",
		Short: "Find duplicate and overlapping entries of different departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, r, err := setup(*configPath)
			if err != nil {
				return err
			}

			findings, err := conflict.New(r).Detect(models.DB, year)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Found %d conflicts for %d\n", len(findings), year)
			for _, f := range findings {
				fmt.Fprintf(out, "  %s %s / %s %s (%s, %.0f%%): %s\n", f.EntryADepartment, f.EntryAName, f.EntryBDepartment, f.EntryBName, f.Type, f.Similarity*100, f.SuggestedAction)
			}

			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", models.FirstYear, "fiscal year to compare the amounts of")

	return cmd
}

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default departments and the global limit of the first year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, r, err := setup(*configPath)
			if err != nil {
				return err
			}

			err = seed(cfg, r)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Seeded departments and the global limit")
			return nil
		},
	}
}
