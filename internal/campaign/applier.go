package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dev-urban/mailchimp-automation/internal/format"
	"github.com/dev-urban/mailchimp-automation/internal/model"
	"github.com/dev-urban/mailchimp-automation/pkg/mailchimp"
)

// placeholderPhoto replaces photo references that are not usable URLs, so
// the email template never renders a broken image.
const placeholderPhoto = "https://via.placeholder.com/300x180?text=Sem+Foto"

// MailchimpApplier writes similar-listing matches to a lead's Mailchimp
// contact (up to 4 listings × 8 merge fields) and tags the contact with the
// campaign tag. Both operations are upserts on Mailchimp's side, so
// reapplying is safe.
type MailchimpApplier struct {
	client mailchimp.Client
}

// NewMailchimpApplier wraps a Mailchimp client as a dispatcher Applier.
func NewMailchimpApplier(client mailchimp.Client) *MailchimpApplier {
	return &MailchimpApplier{client: client}
}

// Apply upserts the contact with its merge fields and applies the campaign
// tag. A tag failure after a successful upsert is not fatal: the contact is
// updated, it just misses this campaign's segment.
func (a *MailchimpApplier) Apply(ctx context.Context, lead model.Lead, matches []model.SimilarListing, tag string) error {
	member := mailchimp.Member{
		Email:       lead.Email,
		MergeFields: MergeFields(lead, matches),
	}
	if err := a.client.UpsertMember(ctx, member); err != nil {
		return eris.Wrapf(err, "campaign: upsert contact %s", lead.Email)
	}

	if err := a.client.TagMember(ctx, lead.Email, tag); err != nil {
		return eris.Wrapf(err, "campaign: tag contact %s", lead.Email)
	}
	return nil
}

// MergeFields builds the merge-field map for a lead: name and phone fields
// plus IM1..IM4 listing blocks. Listings missing a title or code are skipped
// rather than rendered half-empty.
func MergeFields(lead model.Lead, matches []model.SimilarListing) map[string]string {
	fields := map[string]string{
		"FNAME": lead.FirstName(),
		"LNAME": lead.LastName(),
		"PHONE": lead.Phone,
	}

	slot := 0
	for _, m := range matches {
		if slot == 4 {
			break
		}

		title := derefTrim(m.Title)
		code := strings.TrimSpace(m.Code)
		if title == "" || code == "" || m.SalePrice == nil {
			continue
		}

		photo := derefTrim(m.Photo)
		if !strings.HasPrefix(photo, "http") {
			photo = placeholderPhoto
		}

		bedrooms := 0
		if m.Bedrooms != nil {
			bedrooms = *m.Bedrooms
		}
		area := "0"
		if m.PrivateArea != nil {
			area = fmt.Sprintf("%.0f", *m.PrivateArea)
		}

		slot++
		prefix := fmt.Sprintf("IM%d_", slot)
		fields[prefix+"TITULO"] = clip(title)
		fields[prefix+"ENDER"] = clip(derefTrim(m.Address))
		fields[prefix+"COD"] = clip(code)
		fields[prefix+"FOTO"] = clip(photo)
		fields[prefix+"VALOR"] = clip(format.Price(m.SalePrice))
		fields[prefix+"DORM"] = clip(fmt.Sprintf("%d", bedrooms))
		fields[prefix+"AREA"] = clip(area)
		fields[prefix+"BAIRRO"] = clip(derefTrim(m.Neighborhood))
	}

	return fields
}

func derefTrim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// clip enforces Mailchimp's 255-character merge-field limit.
func clip(s string) string {
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
