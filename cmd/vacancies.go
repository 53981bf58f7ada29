package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/staffing-bot/internal/logger"
	"github.com/spigell/staffing-bot/internal/store"
)

const (
	PromptSetVoice = "Replace a voice clip with a local file"
	PromptReset    = "Reset all assignments"
	PromptExit     = "Exit"
	PromptBack     = "back"
)

var vacanciesCmd = &cobra.Command{
	Use:   "vacancies",
	Short: "Inspect and maintain the vacancy store without Telegram",
	Run: func(_ *cobra.Command, _ []string) {
		vacanciesConsole()
	},
}

func init() {
	rootCmd.AddCommand(vacanciesCmd)
}

// vacanciesConsole is a local operator loop over the same store operations
// the bot uses.
func vacanciesConsole() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
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

	for {
		printVacancies(ctx, st, logger)

		prompt := promptui.Select{
			Label: "Proceed?",
			Items: []string{PromptSetVoice, PromptReset, PromptExit},
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch action {
		case PromptSetVoice:
			if err := setVoiceFromConsole(ctx, st); err != nil {
				logger.Warn("voice replacement failed", zap.Error(err))
			}
		case PromptReset:
			if err := st.ResetAll(ctx); err != nil {
				logger.Fatal("resetting assignments", zap.Error(err))
			}
		case PromptExit:
			return
		}
	}
}

func printVacancies(ctx context.Context, st *store.Store, logger *zap.Logger) {
	vacancies, err := st.ListAll(ctx)
	if err != nil {
		logger.Fatal("listing vacancies", zap.Error(err))
	}

	for _, v := range vacancies {
		state := "available"
		if v.Taken {
			state = "taken"
		}
		fmt.Printf("%d. %s [%s] voice=%s\n", v.ID, v.Title, state, v.Voice)
	}
}

func setVoiceFromConsole(ctx context.Context, st *store.Store) error {
	vacancies, err := st.ListAll(ctx)
	if err != nil {
		return err
	}

	items := make([]string, 0, len(vacancies)+1)
	for _, v := range vacancies {
		items = append(items, fmt.Sprintf("%d %s", v.ID, v.Title))
	}
	items = append(items, PromptBack)

	vacancyPrompt := promptui.Select{
		Label: "Choose a vacancy and press ENTER",
		Items: items,
	}

	idx, selected, err := vacancyPrompt.Run()
	if err != nil {
		return err
	}

	if selected == PromptBack {
		return nil
	}

	pathPrompt := promptui.Prompt{
		Label: "Path to the .ogg clip",
		Validate: func(input string) error {
			if _, err := os.Stat(strings.TrimSpace(input)); err != nil {
				return fmt.Errorf("file is not readable: %w", err)
			}
			return nil
		},
	}

	path, err := pathPrompt.Run()
	if err != nil {
		return err
	}

	return st.UpdateVoiceRef(ctx, vacancies[idx].ID, store.LocalVoice(strings.TrimSpace(path)))
}
