package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/postgres"
	"timed-quiz-service/internal/infra/static"
	"timed-quiz-service/internal/logging"
)

// NewImportCmd seeds the questions table from a JSON file or URL.
func NewImportCmd(configPath *string) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <questions.json>",
		Short: "Import questions into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, args[0], replace)
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "delete existing questions first")
	return cmd
}

func runImport(ctx context.Context, configPath, location string, replace bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	questions, err := static.NewSource(location, nil).LoadQuestions(ctx)
	if err != nil {
		return err
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	n, err := postgres.ImportQuestions(ctx, db, questions, replace)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"source": location, "imported": n, "replace": replace}).Info("questions imported")
	return nil
}
