package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/staffing-bot/internal/engine"
	"github.com/spigell/staffing-bot/internal/logger"
	"github.com/spigell/staffing-bot/internal/secrets"
	"github.com/spigell/staffing-bot/internal/session"
	"github.com/spigell/staffing-bot/internal/store"
	"github.com/spigell/staffing-bot/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the staffing-bot main command",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run is the main command for the bot.
func run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the staffing-bot", zap.String("version", version))

	if config == nil {
		logger.Fatal("config is required")
	}

	token, err := resolveToken(config)
	if err != nil {
		logger.Fatal(
			"loading telegram bot token",
			zap.Error(err),
			zap.String("hint", "set BOT_TOKEN_FILE environment variable or the 'token-file' key in the configuration file"),
		)
	}

	if err := os.MkdirAll(config.VoicesDir, 0o755); err != nil {
		logger.Fatal("creating voices directory", zap.Error(err))
	}

	st, err := store.Open(config.Database, logger)
	if err != nil {
		logger.Fatal("opening the vacancy store", zap.Error(err))
	}
	defer st.Close()

	seeds := store.DefaultSeeds(config.VacancyTitles(), config.VoicesDir)
	if err := st.Init(ctx, seeds); err != nil {
		logger.Fatal("initializing the vacancy store", zap.Error(err))
	}

	client := telegram.New(ctx, logger, token)

	me, err := client.GetMe()
	if err != nil {
		logger.Fatal("connecting to the telegram api", zap.Error(err))
	}

	logger.Info("connected to telegram",
		zap.String("bot", me.Username),
		zap.Int("admins", len(config.Admins)),
	)

	renderer := telegram.NewRenderer(client)

	eng := engine.New(
		&engine.Config{
			Admins:    config.Admins,
			VoicesDir: config.VoicesDir,
		},
		&engine.Deps{
			Store:    st,
			Sessions: session.NewManager(),
			Renderer: renderer,
			Files:    renderer,
			Logger:   logger,
		},
	)

	poller := telegram.NewPoller(client, eng, logger)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("polling stopped", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown signal"))
}

func resolveToken(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	tokenFile := strings.TrimSpace(config.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	return secrets.Load(secrets.Source{
		Name:  "telegram bot token",
		Value: config.Token,
		File:  tokenFile,
	})
}
