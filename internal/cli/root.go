package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimcheck",
	Short: "claimcheck - automated fact-checking against trusted sources",
	Long: `claimcheck fact-checks short claims.

Each claim is searched on the web, readable text is extracted from
high and medium trust sources only, and a language model weighs that
evidence into a verdict from a closed set (Likely True, Likely False,
Uncertain, ...) with a confidence score.

Claims can be checked one at a time, from a file, over HTTP, or in a
background cycle that drains a claim store and delivers results to a
backend.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// envAliases are the unprefixed variable names deployments already use
var envAliases = map[string][]string{
	"search.api_key":       {"GOOGLE_API_KEY"},
	"search.engine_id":     {"GOOGLE_SEARCH_ENGINE_ID"},
	"store.mongo_uri":      {"MONGODB_URI"},
	"store.mongo_database": {"MONGODB_DB_NAME"},
	"store.postgres_dsn":   {"DATABASE_URL"},
	"webhook.base_url":     {"NODE_BACKEND_URL"},
	"publisher.url":        {"RABBITMQ_URL"},
}

// configKeys lists every setting that can be overridden with a
// CLAIMCHECK_ variable, e.g. CLAIMCHECK_LLM_MODEL for llm.model
var configKeys = []string{
	"http.timeout", "http.user_agent", "http.max_body_bytes", "http.max_attempts",
	"http.retry_backoff", "http.respect_robots", "http.http_proxy", "http.https_proxy", "http.no_proxy",
	"search.api_key", "search.engine_id", "search.endpoint", "search.num_results", "search.timeout",
	"llm.provider", "llm.model", "llm.api_key", "llm.base_url", "llm.timeout", "llm.temperature", "llm.max_tokens",
	"store.driver", "store.mongo_uri", "store.mongo_database", "store.collection", "store.postgres_dsn",
	"webhook.base_url", "webhook.timeout",
	"publisher.enabled", "publisher.url", "publisher.exchange", "publisher.routing_key", "publisher.queue_name",
	"cycle.interval", "cycle.error_backoff", "cycle.mark_policy", "cycle.concurrent",
	"cache.enabled", "cache.ttl", "cache.dir",
	"concurrency.extract_workers", "concurrency.claim_workers",
	"rate_limiting.requests_per_second", "rate_limiting.burst_size",
	"server.addr", "server.batch_limit",
	"log.level", "log.format",
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// A missing .env is the normal case outside development
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".claimcheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := bindEnv(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding environment: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps CLAIMCHECK_* variables and the legacy aliases onto config keys
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("CLAIMCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range configKeys {
		names := []string{"CLAIMCHECK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		names = append(names, envAliases[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// loadConfig layers the config file and environment over DefaultConfig
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") {
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	if v.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

// newLogger builds the process logger from the log section
func newLogger(cfg model.LogConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setup loads configuration and installs the default logger
func setup() (*model.Config, *slog.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
