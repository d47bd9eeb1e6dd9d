package main

import (
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-verify records whose verification has expired",
	Long: `Run one re-verification sweep against the configured stores and exit.
Use this from an external scheduler when WORKTRUST_SWEEP_ENABLED is off.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		a, err := buildApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.verification.ReVerifyExpired(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		for recordID, reason := range result.Errors {
			log.Warn("record not re-verified", "record_id", recordID.String(), "reason", reason)
		}
		cmd.Printf("examined %d, re-verified %d, failed %d\n", result.Examined, result.Reverified, len(result.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
