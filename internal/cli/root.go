// Package cli wires configuration, storage and services into the studenthub commands.
package cli

import (
	"errors"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studenthub/internal/config"
	"studenthub/internal/logging"
)

type app struct {
	configPath string
	envFile    string
	out        io.Writer

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the studenthub command tree.
func NewRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:   "studenthub",
		Short: "Hostels, restaurants and places to visit around campus",
		Long: `studenthub serves the student-life listing API.

Listings are read from the SQL store; when the store is unreachable or has
nothing for the selected location, a bundled dataset is served instead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newQueryCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	envErr := godotenv.Load(a.envFile)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	if envErr != nil {
		logger.Debug("no env file loaded", zap.String("path", a.envFile), zap.Error(envErr))
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("cmd", cmd.Name()))
	a.out = cmd.OutOrStdout()
	return nil
}

// requireDatabase is the subset of Validate the offline commands need.
func (a *app) requireDatabase() error {
	if a.cfg.Database.URL == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
