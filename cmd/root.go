package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "staffing-bot"

	defaultDatabase  = "vacancies.db"
	defaultVoicesDir = "voices"
)

type Config struct {
	Database  string   `mapstructure:"database"`
	VoicesDir string   `mapstructure:"voices-dir"`
	TokenFile string   `mapstructure:"token-file"`
	Token     string   `mapstructure:"token"`
	Admins    []int64  `mapstructure:"admins"`
	Vacancies []string `mapstructure:"vacancies"`
}

// VacancyTitles returns the configured seed titles, defaulting to four
// numbered vacancies like the original deployment.
func (c *Config) VacancyTitles() []string {
	if len(c.Vacancies) > 0 {
		return c.Vacancies
	}

	titles := make([]string, 0, 4)
	for i := 1; i <= 4; i++ {
		titles = append(titles, fmt.Sprintf("Вакансия %d", i))
	}

	return titles
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "staffing-bot is a Telegram bot that hands out vacancies first-come-first-served",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("token-file", "BOT_TOKEN_FILE"); err != nil {
		log.Fatalf("binding BOT_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is staffing-bot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("database", defaultDatabase)
	viper.SetDefault("voices-dir", defaultVoicesDir)
}

func initConfig() {
	// Config is needed only for the run and vacancies commands.
	if runCmd.CalledAs() == "" && vacanciesCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
