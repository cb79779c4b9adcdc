package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about your PDF documents",
	Long: `pdfrag indexes uploaded PDF documents into a vector database and answers
questions about them with a large language model, using the most relevant
chunks of text as context.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or /etc/pdfrag/config.yaml)")

	rootCmd.AddCommand(serverCmd, workerCmd, standaloneCmd)
}

func initConfig() error {
	// A missing .env is fine, real environment variables still apply.
	_ = godotenv.Load()

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/pdfrag")
	}
	viper.SetEnvPrefix("pdfrag")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("http.host", "")
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("db.driver", "sqlite3")
	viper.SetDefault("db.name", "pdfrag.sqlite")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("storage.name", "local")
	viper.SetDefault("storage.dir", "uploads")
	viper.SetDefault("queue.key", "pdfrag:jobs")
	viper.SetDefault("queue.max_attempts", 1)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.protocol", 2)
	viper.SetDefault("worker.concurrency", 1)
	viper.SetDefault("worker.job_timeout", "15m")
	viper.SetDefault("extractor.name", "pdf")
	viper.SetDefault("splitter.name", "window")
	viper.SetDefault("splitter.chunk_size", 1000)
	viper.SetDefault("splitter.chunk_overlap", 200)
	viper.SetDefault("embedder.name", "hugot")
	viper.SetDefault("vectorstore.name", "qdrant")
	viper.SetDefault("qdrant.host", "localhost")
	viper.SetDefault("qdrant.port", 6334)
	viper.SetDefault("weaviate.host", "localhost:8080")
	viper.SetDefault("weaviate.scheme", "http")
	viper.SetDefault("chat.name", "openai")
	viper.SetDefault("retrieval.top_k", 2)
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if viper.GetBool("log.development") {
		cfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.Level = level

	return cfg.Build()
}
