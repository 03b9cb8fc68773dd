package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/campaign"
)

var (
	runSend   bool
	runDryRun bool
	runLimit  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the similar-listings campaign for current leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "campaign")
		if err != nil {
			return err
		}
		defer env.Close()

		applier := campaign.NewMailchimpApplier(env.Mailchimp)
		dispatcher := campaign.NewDispatcher(env.Catalog, env.Coordinates, env.Resolver, applier, cfg.Batch.Workers)

		send := (cfg.Campaign.AutoSend || runSend) && !runDryRun
		runner := campaign.NewRunner(env.Leads, dispatcher, env.Mailchimp, cfg.Campaign.TemplatePath, send, runLimit)

		report, err := runner.Run(ctx)
		if report != nil {
			zap.L().Info("campaign run complete",
				zap.Int("total", report.Total),
				zap.Int("matched", report.Matched),
				zap.Int("skipped", report.Skipped),
				zap.Int("failed", report.Failed),
				zap.String("campaign_id", report.CampaignID),
			)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
		if err != nil {
			return eris.Wrap(err, "campaign run")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSend, "send", false, "send the campaign instead of leaving a draft")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "always leave the campaign as a draft, overriding auto_send")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N leads (0 = all)")
	rootCmd.AddCommand(runCmd)
}
