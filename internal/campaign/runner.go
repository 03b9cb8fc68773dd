package campaign

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

// LeadSource fetches the batch of leads eligible for a campaign run.
type LeadSource interface {
	FetchLeads(ctx context.Context) ([]model.Lead, error)
}

// Campaigner is the slice of the Mailchimp API the runner needs after
// dispatch: finding the tag's segment and creating/sending the campaign.
type Campaigner interface {
	SegmentIDByTag(ctx context.Context, tag string) (int, error)
	CreateCampaign(ctx context.Context, segmentID int, title string) (string, error)
	SetCampaignHTML(ctx context.Context, campaignID, html string) error
	SendCampaign(ctx context.Context, campaignID string) error
}

// Runner orchestrates one end-to-end campaign: fetch leads, dispatch
// matching and contact updates, then create a campaign addressed at the
// run's tag segment.
type Runner struct {
	leads        LeadSource
	dispatcher   *Dispatcher
	client       Campaigner
	templatePath string
	send         bool
	limit        int
}

// NewRunner builds a runner. When send is false the campaign is created as a
// draft for manual review. limit caps the batch; zero means no cap.
func NewRunner(leads LeadSource, dispatcher *Dispatcher, client Campaigner, templatePath string, send bool, limit int) *Runner {
	return &Runner{
		leads:        leads,
		dispatcher:   dispatcher,
		client:       client,
		templatePath: templatePath,
		send:         send,
		limit:        limit,
	}
}

// Run executes the full flow and returns the dispatch report, with
// CampaignID set when a campaign was created. A run where nothing matched is
// a normal outcome, not an error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	now := time.Now()
	tag := "CAMP_" + now.Format("20060102_150405")
	log := zap.L().With(
		zap.String("run_id", uuid.NewString()),
		zap.String("tag", tag),
	)
	log.Info("starting campaign run")

	// The template is read up front: a missing file should fail the run
	// before any contact is modified.
	html, err := os.ReadFile(r.templatePath)
	if err != nil {
		return nil, eris.Wrapf(err, "campaign: read template %s", r.templatePath)
	}

	leads, err := r.leads.FetchLeads(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "campaign: fetch leads")
	}
	if r.limit > 0 && len(leads) > r.limit {
		leads = leads[:r.limit]
	}
	if len(leads) == 0 {
		log.Info("no leads to process")
		return &Report{}, nil
	}
	log.Info("leads fetched", zap.Int("leads", len(leads)))

	report := r.dispatcher.Run(ctx, leads, tag)
	if report.Matched == 0 {
		log.Warn("no contacts updated, campaign not created")
		return report, nil
	}

	segmentID, err := r.client.SegmentIDByTag(ctx, tag)
	if err != nil {
		return report, eris.Wrapf(err, "campaign: find segment for tag %s", tag)
	}

	title := fmt.Sprintf("Imóveis Semelhantes - %s", now.Format("02/01/2006 15:04"))
	campaignID, err := r.client.CreateCampaign(ctx, segmentID, title)
	if err != nil {
		return report, eris.Wrap(err, "campaign: create")
	}
	report.CampaignID = campaignID
	log = log.With(zap.String("campaign_id", campaignID))

	if err := r.client.SetCampaignHTML(ctx, campaignID, string(html)); err != nil {
		return report, eris.Wrap(err, "campaign: set content")
	}

	if !r.send {
		log.Info("campaign created as draft")
		return report, nil
	}

	if err := r.client.SendCampaign(ctx, campaignID); err != nil {
		// The campaign exists and can be sent manually; surface the error
		// but keep the ID in the report.
		return report, eris.Wrap(err, "campaign: send")
	}
	log.Info("campaign sent", zap.Int("recipients", report.Matched))
	return report, nil
}
