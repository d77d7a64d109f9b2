package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/okeeper/okeeper/internal/outreach"
	"github.com/okeeper/okeeper/internal/ranking"
	"github.com/okeeper/okeeper/internal/ranking/gemini"
	"github.com/okeeper/okeeper/internal/reminder"
	"github.com/okeeper/okeeper/internal/secrets"
	"github.com/okeeper/okeeper/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "okeeper"

	defaultSendAfterDays = 7
	defaultTopK          = 3
)

type Config struct {
	Owner    string          `mapstructure:"owner"`
	Store    *StoreConfig    `mapstructure:"store"`
	Reminder *ReminderConfig `mapstructure:"reminder"`
	Ranking  *RankingConfig  `mapstructure:"ranking"`
	FollowUp *FollowUpConfig `mapstructure:"follow-up"`
	Metrics  *MetricsConfig  `mapstructure:"metrics"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type ReminderConfig struct {
	DelayDays int             `mapstructure:"delay-days"`
	Telegram  *TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	TokenFile string `mapstructure:"token-file"`
	ChatID    string `mapstructure:"chat-id"`
}

type RankingConfig struct {
	Provider string        `mapstructure:"provider"`
	TopK     int           `mapstructure:"top-k"`
	Oracle   *OracleConfig `mapstructure:"oracle"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type OracleConfig struct {
	URL        string `mapstructure:"url"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type FollowUpConfig struct {
	PromptAfterDays int `mapstructure:"prompt-after-days"`
	SendAfterDays   int `mapstructure:"send-after-days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "okeeper tracks outreach to contacts, schedules follow-up reminders and recommends who to contact next",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("owner", "OKEEPER_OWNER"); err != nil {
		log.Fatalf("binding OKEEPER_OWNER environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is okeeper.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		// We can't proceed if an explicitly given config file parsed with error.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}

		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app + ".yaml")

	// A missing default config file is fine: every command has workable defaults.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}

// ownerID resolves the signed-in identity. Session management lives outside
// this tool; the owner is an explicit stable ID from config or environment.
func ownerID(config *Config) (string, error) {
	owner := strings.TrimSpace(config.Owner)
	if owner == "" {
		owner = strings.TrimSpace(viper.GetString("owner"))
	}

	if owner == "" {
		return "", fmt.Errorf("owner is not configured (set 'owner' in the config file or OKEEPER_OWNER)")
	}

	return owner, nil
}

func openStore(ctx context.Context, config *Config) (store.Store, error) {
	driver := "memory"
	if config.Store != nil && config.Store.Driver != "" {
		driver = strings.ToLower(strings.TrimSpace(config.Store.Driver))
	}

	switch driver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite":
		path := app + ".db"
		if config.Store != nil && config.Store.Path != "" {
			path = config.Store.Path
		}

		st, err := store.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}

		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate sqlite store: %w", err)
		}

		return st, nil
	case "postgres":
		if config.Store == nil || config.Store.DSN == "" {
			return nil, fmt.Errorf("store.dsn is required for the postgres driver")
		}

		return store.NewPostgres(ctx, config.Store.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func followUpDelay(config *Config) time.Duration {
	if config.Reminder == nil || config.Reminder.DelayDays <= 0 {
		return outreach.DefaultFollowUpDelay
	}

	return time.Duration(config.Reminder.DelayDays) * 24 * time.Hour
}

func sendAfterDays(config *Config) int {
	if config.FollowUp == nil || config.FollowUp.SendAfterDays <= 0 {
		return defaultSendAfterDays
	}

	return config.FollowUp.SendAfterDays
}

func promptAfterDays(config *Config) int {
	if config.FollowUp == nil || config.FollowUp.PromptAfterDays <= 0 {
		return 0
	}

	return config.FollowUp.PromptAfterDays
}

func topK(config *Config) int {
	if config.Ranking == nil || config.Ranking.TopK <= 0 {
		return defaultTopK
	}

	return config.Ranking.TopK
}

func newRankingClient(ctx context.Context, config *RankingConfig, logger *zap.Logger) (ranking.Client, error) {
	if config == nil {
		return nil, fmt.Errorf("ranking configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))

	switch provider {
	case "", "oracle":
		if config.Oracle == nil || strings.TrimSpace(config.Oracle.URL) == "" {
			return nil, fmt.Errorf("ranking.oracle.url is required for the oracle provider")
		}

		apiKey := ""
		if config.Oracle.APIKeyFile != "" {
			key, err := secrets.Load(secrets.Source{
				Name: "ranking oracle api key",
				File: config.Oracle.APIKeyFile,
			})
			if err != nil {
				return nil, err
			}
			apiKey = key
		}

		return ranking.NewOracle(config.Oracle.URL, apiKey, logger), nil
	case "gemini":
		if config.Gemini == nil {
			return nil, fmt.Errorf("gemini configuration is required for the gemini provider")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: config.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ranking.gemini.api-key-file)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, config.Gemini.Model)
		if err != nil {
			return nil, err
		}

		rankerLogger := logger.With(
			zap.String("provider", "gemini"),
			zap.String("model", generator.Model()),
		)

		return gemini.NewRanker(generator, config.Gemini.MaxLogLength, rankerLogger), nil
	default:
		return nil, fmt.Errorf("unsupported ranking provider: %s", config.Provider)
	}
}

func newNotifier(config *Config, logger *zap.Logger) (reminder.Notifier, error) {
	if config.Reminder == nil || config.Reminder.Telegram == nil {
		return reminder.NewLogNotifier(logger), nil
	}

	token, err := secrets.Load(secrets.Source{
		Name: "telegram bot token",
		File: config.Reminder.Telegram.TokenFile,
	})
	if err != nil {
		return nil, err
	}

	return reminder.NewTelegramNotifier(token, config.Reminder.Telegram.ChatID)
}
