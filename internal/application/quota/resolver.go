package quota

import (
	"time"

	"classifieds-backend/internal/domain"
)

const (
	SourcePlan      = "plan"
	SourcePromotion = "promotion"
)

// Quota is the effective monthly limit for an account.
// PlanExpiresAt is set when a promotion overrides the plan; it is the promotion's end date.
type Quota struct {
	MaxAds        int        `json:"max_ads"`
	MaxPhotos     int        `json:"max_photos"`
	Source        string     `json:"source"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`
}

// Resolve computes the effective quota from the account's plan and the global promotion.
// An enabled promotion whose [start, end] contains now overrides both limits.
func Resolve(account *domain.Account, promo *domain.Promotion, now time.Time) (Quota, error) {
	if account == nil || account.Plan == nil {
		return Quota{}, domain.ErrPlanNotFound
	}
	q := Quota{
		MaxAds:    account.Plan.MaxAds,
		MaxPhotos: account.Plan.MaxPhotos,
		Source:    SourcePlan,
	}
	if promo.ActiveAt(now) {
		end := promo.EndDate
		q.MaxAds = promo.MaxAdsPerMonth
		q.MaxPhotos = promo.MaxPhotosPerAd
		q.Source = SourcePromotion
		q.PlanExpiresAt = &end
	}
	return q, nil
}
