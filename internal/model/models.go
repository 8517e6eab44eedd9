package model

import (
	"fmt"
	"math/big"
)

// Charity represents a registered charity on the ledger.
// The address is the charity's identity and never changes once created.
type Charity struct {
	Address     string // hex address on the ledger
	Name        string
	Description string
	MetadataURL string
	IsActive    bool
}

// CharityRequest is a pending or approved registration request.
// Requests are identified by their position in the submission-ordered
// list the ledger returns; they are never deleted.
type CharityRequest struct {
	ID          int // position in submission order
	Requester   string
	Name        string
	Description string
	MetadataURL string
	Approved    bool
}

// CampaignRef identifies a campaign by its owning charity and its
// position within that charity's campaign list. The ledger has no other
// campaign identifier.
type CampaignRef struct {
	Charity string
	Index   int
}

func (r CampaignRef) String() string {
	return fmt.Sprintf("%s#%d", r.Charity, r.Index)
}

// Campaign represents a fundraising campaign owned by a charity.
// Amounts are in minor units (wei). TotalDonated only grows via donations;
// IsActive is the raw ledger flag and says nothing about the deadline.
type Campaign struct {
	Charity      string
	Index        int
	Title        string
	Description  string
	GoalAmount   *big.Int // minor units
	TotalDonated *big.Int // minor units, non-decreasing
	Deadline     int64    // unix seconds
	IsActive     bool
}

func (c *Campaign) Ref() CampaignRef {
	return CampaignRef{Charity: c.Charity, Index: c.Index}
}

// Donation is a single recorded donation. Immutable once on the ledger.
type Donation struct {
	Donor     string
	Amount    *big.Int // minor units
	Timestamp int64    // unix seconds
	Message   string
}

// PlatformConfig holds the platform-wide parameters the admin controls.
type PlatformConfig struct {
	MinimumDonation *big.Int // minor units
	Paused          bool
}
