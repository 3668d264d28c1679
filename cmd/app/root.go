package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/pagepress/internal/config"
	logpkg "github.com/local/pagepress/internal/logger"
	"github.com/local/pagepress/internal/metrics"
)

var (
	envFile string
	cfg     cfgpkg.Config
)

var rootCmd = &cobra.Command{
	Use:   "pagepress",
	Short: "Scanned-document optimizer: palette quantization and PDF reassembly",
	Long: `Pagepress shrinks scanned documents by reducing every page to a small
color palette and reassembling the result as a PDF.

For each document it samples a fraction of the pixels, infers the paper
background, splits foreground ink from it in HSV space, builds a palette
with k-means and re-encodes the pages as indexed PNGs before assembly.
Cover pages pass through untouched in front of the content.

Configuration comes from the environment, optionally seeded from a .env
file. Command flags override it per run.`,
	Version:      release,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", "", "env file to load before reading configuration (default: ./.env if present)",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return err
			}
		} else {
			// A missing ./.env is fine.
			_ = godotenv.Load()
		}
		cfg = cfgpkg.FromEnv()
		_ = logpkg.Init(logpkg.Options{
			Level:        cfg.Logging.Level,
			Pretty:       cfg.Logging.Pretty,
			File:         cfg.Logging.File,
			MaxSizeMB:    cfg.Logging.MaxSizeMB,
			MaxBackups:   cfg.Logging.MaxBackups,
			MaxAgeDays:   cfg.Logging.MaxAgeDays,
			Compress:     cfg.Logging.Compress,
			SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
			AxiomAPIKey:  cfg.Axiom.APIKey,
			AxiomOrgID:   cfg.Axiom.OrgID,
			AxiomDataset: cfg.Axiom.Dataset,
			AxiomFlush:   cfg.Axiom.FlushInterval,
		})
		metrics.Init()
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}
