package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/lireddit/config"
	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lireddit",
	Short: "Link board API with one vote per user per post",
	Long: `lireddit serves a newest-first post feed with cursor pagination and
up/down votes. Configuration is read from config/config.json or config/config.yaml,
then overridden by environment variables (a .env file is loaded when present).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a JSON or YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// bootstrap loads configuration, the logger and the database.
func bootstrap() (config.AppConfig, *gorm.DB, error) {
	cfg := config.Load(configPath)
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	db := config.InitDatabase(models.All()...)
	return cfg, db, nil
}
