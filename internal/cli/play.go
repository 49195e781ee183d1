package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/logging"
	"timed-quiz-service/internal/tui"
)

// NewPlayCmd runs a single session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		source  string
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, source, noColor)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "questions JSON file or URL (overrides config)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")
	return cmd
}

func runPlay(ctx context.Context, configPath, source string, noColor bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if source != "" {
		cfg.Quiz.Source = source
		cfg.Postgres.URL = ""
	}
	// The terminal belongs to the program.
	log := logging.Discard()

	b, err := connectBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	store := app.NewQuestionStore(b.questionSource(cfg, log), log)
	service := app.NewQuizService(memory.NewSessionStore(), store, cfg.Settings(), app.RealScheduler{}, log)

	adapter := tui.NewAdapter()
	session := service.Open("", adapter, adapter)
	defer func() {
		adapter.Close()
		service.Close(session.ID())
	}()
	session.Bind(adapter)

	go func() { _, _ = store.Load(ctx) }()

	model := tui.NewModel(adapter, tui.Options{Labels: cfg.Settings().Labels, NoColor: noColor})
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
