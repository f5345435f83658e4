// Package cmd implements the isic-ocr command line.
package cmd

import (
	"github.com/Aashish23092/isic-card-ocr/config"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	engine   string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "isic-ocr",
	Short: "Read ISIC student cards with OCR and link them to a wallet",
	Long: `isic-ocr extracts card number, holder name, dates, institution and
card type from photos of ISIC student identity cards.

It runs as an HTTP service for the wallet app (serve), or one-shot from the
command line (extract, upload). Card data is only kept in memory and is sent
to the wallet backend only when the user consents.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "", "OCR engine (tesseract, paddle, vision)")
}

// initConfig loads configuration and applies flag overrides
func initConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if cmd.Flags().Changed("engine") {
		loaded.OCREngine = engine
		if err := loaded.Validate(); err != nil {
			return err
		}
	}

	if err := logger.Init(&logger.Config{Level: loaded.LogLevel, Format: loaded.LogFormat}); err != nil {
		return err
	}

	cfg = loaded
	logger.Debugf("Configuration loaded (engine %s)", cfg.OCREngine)
	return nil
}
