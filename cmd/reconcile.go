package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

var reconcilePostID uint

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute post points from the vote ledger and repair drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		scores := services.NewScoreAggregator(db, utils.Logger.Named("reconcile"))
		out := cmd.OutOrStdout()

		if reconcilePostID != 0 {
			drift, err := scores.Reconcile(cmd.Context(), reconcilePostID)
			if err != nil {
				return err
			}
			if drift == nil {
				fmt.Fprintf(out, "post %d: ok\n", reconcilePostID)
				return nil
			}
			fmt.Fprintf(out, "post %d: repaired %d -> %d\n", drift.PostID, drift.Stored, drift.Ledger)
			return nil
		}

		report, err := scores.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range report.Repaired {
			fmt.Fprintf(out, "post %d: repaired %d -> %d\n", d.PostID, d.Stored, d.Ledger)
		}
		fmt.Fprintf(out, "checked %d posts, repaired %d\n", report.Checked, len(report.Repaired))
		return nil
	},
}

func init() {
	reconcileCmd.Flags().UintVar(&reconcilePostID, "post", 0, "reconcile a single post id")
}
