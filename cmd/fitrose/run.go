package fitrose

import (
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/config"
	"github.com/SblYMblK/FitRose/internal/engine"
	"github.com/SblYMblK/FitRose/internal/oracle"
	"github.com/SblYMblK/FitRose/internal/telegram"
)

const pollTimeoutSeconds = 30

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		if dbPath != "" {
			settings.DBPath = dbPath
		}

		log, err := newLogger(settings)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		sqldb, err := openDatabase(settings.DBPath)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		orc := oracle.New(oracle.Config{
			APIKey:     settings.OpenAIKey,
			Model:      settings.OpenAIModel,
			BaseURL:    settings.OpenAIBaseURL,
			Timeout:    config.OracleTimeout,
			MaxRetries: config.OracleMaxRetries,
		}, log.Named("oracle"))
		eng := engine.New(sqldb, orc, log.Named("engine"))

		api, err := tgbotapi.NewBotAPI(settings.TelegramToken)
		if err != nil {
			return fmt.Errorf("connect to telegram: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		updateCfg := tgbotapi.NewUpdate(0)
		updateCfg.Timeout = pollTimeoutSeconds
		updates := api.GetUpdatesChan(updateCfg)

		log.Info("bot started",
			zap.String("username", api.Self.UserName),
			zap.String("db", settings.DBPath),
			zap.String("model", settings.OpenAIModel),
		)
		telegram.New(api, eng, log.Named("telegram")).Run(ctx, updates)
		api.StopReceivingUpdates()
		log.Info("bot stopped")
		return nil
	},
}

func newLogger(settings config.Settings) (*zap.Logger, error) {
	if settings.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func init() {
	rootCmd.AddCommand(runCmd)
}
