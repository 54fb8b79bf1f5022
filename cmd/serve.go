package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/lireddit/routes"
	"github.com/cppla/lireddit/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = utils.Logger.Sync() }()

		r := routes.SetupRouter(db)

		utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
		if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
			utils.Sugar.Errorf("server stopped with error: %v", err)
			return err
		}
		return nil
	},
}
