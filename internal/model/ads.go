package model

import (
	"fmt"
	"sort"
	"time"
)

type Partner struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Website   string    `json:"website,omitempty" yaml:"website,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

func (p Partner) Validate() error {
	if p.ID <= 0 || p.Name == "" {
		return fmt.Errorf("%w: partner %d", ErrInvalid, p.ID)
	}
	return nil
}

type Vendor struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

func (v Vendor) Validate() error {
	if v.ID <= 0 || v.Name == "" {
		return fmt.Errorf("%w: vendor %d", ErrInvalid, v.ID)
	}
	return nil
}

// Buyer is a user paying for campaigns through the payment gateway
type Buyer struct {
	ID               int64     `json:"id" yaml:"id"`
	UserID           int64     `json:"userId" yaml:"userId"`
	StripeCustomerID string    `json:"stripeCustomerId" yaml:"stripeCustomerId"`
	CreatedAt        time.Time `json:"createdAt" yaml:"createdAt"`
}

type CampaignStatus string

const (
	CampaignDraft    CampaignStatus = "draft"
	CampaignActive   CampaignStatus = "active"
	CampaignPaused   CampaignStatus = "paused"
	CampaignFinished CampaignStatus = "finished"
)

type Campaign struct {
	ID          int64          `json:"id" yaml:"id"`
	PartnerID   int64          `json:"partnerId" yaml:"partnerId"`
	VendorID    int64          `json:"vendorId" yaml:"vendorId"`
	Name        string         `json:"name" yaml:"name"`
	Status      CampaignStatus `json:"status" yaml:"status"`
	BudgetCents int64          `json:"budgetCents" yaml:"budgetCents"`
	StartsAt    time.Time      `json:"startsAt" yaml:"startsAt"`
	EndsAt      time.Time      `json:"endsAt" yaml:"endsAt"`
}

type Banner struct {
	ID         int64     `json:"id" yaml:"id"`
	CampaignID int64     `json:"campaignId" yaml:"campaignId"`
	ImageURL   string    `json:"imageUrl" yaml:"imageUrl"`
	TargetURL  string    `json:"targetUrl" yaml:"targetUrl"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

type InteractionKind string

const (
	InteractionView  InteractionKind = "view"
	InteractionClick InteractionKind = "click"
)

// Interaction is a tracked view or click of a banner
type Interaction struct {
	ID        int64           `json:"id" yaml:"id"`
	BannerID  int64           `json:"bannerId" yaml:"bannerId"`
	UserID    int64           `json:"userId" yaml:"userId"`
	Kind      InteractionKind `json:"kind" yaml:"kind"`
	CreatedAt time.Time       `json:"createdAt" yaml:"createdAt"`
}

// InteractionCounts aggregates the interactions of one banner
type InteractionCounts struct {
	BannerID int64 `json:"bannerId" yaml:"bannerId"`
	Views    int64 `json:"views" yaml:"views"`
	Clicks   int64 `json:"clicks" yaml:"clicks"`
}

// Score is the click through ratio, a banner never viewed scores 0
func Score(clicks, views int64) float64 {
	if views <= 0 || clicks <= 0 {
		return 0
	}
	return float64(clicks) / float64(views)
}

// RankBanners orders banners by descending score, ties by ascending id
func RankBanners(banners []BannerView) {
	sort.SliceStable(banners, func(i, j int) bool {
		if banners[i].Score != banners[j].Score {
			return banners[i].Score > banners[j].Score
		}
		return banners[i].ID < banners[j].ID
	})
}
