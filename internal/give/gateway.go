package give

import (
	"context"
	"math/big"

	"givechain/internal/model"
)

// Gateway is the full read/write surface the charity ledger exposes.
// Implementations live in internal/ledger; the engines in this package only
// ever talk to the ledger through this interface.
//
// Reads are side-effect-free. List results come back in ledger order:
// requests in submission order, campaigns in creation order, donations in
// donation order — the position within those lists is the entity's identifier.
// GetCharity returns a zero-value Charity (IsActive false) for addresses the
// ledger has never seen; it is not an error.
//
// Writes are atomic ledger transactions. A refused or reverted write surfaces
// as ErrLedgerRejected. After any write, success or failure, previously read
// data must be treated as stale and re-fetched before derived values are
// trusted again.
type Gateway interface {
	ListCharityAddresses(ctx context.Context) ([]string, error)
	GetCharity(ctx context.Context, address string) (*model.Charity, error)
	ListCharityRequests(ctx context.Context) ([]*model.CharityRequest, error)
	ListCampaigns(ctx context.Context, charity string) ([]*model.Campaign, error)
	ListDonations(ctx context.Context, charity string, campaignIndex int) ([]*model.Donation, error)
	GetPlatformConfig(ctx context.Context) (*model.PlatformConfig, error)
	GetOwner(ctx context.Context) (string, error)

	SubmitCharityRequest(ctx context.Context, from, name, description, metadataURL string) error
	ApproveCharityRequest(ctx context.Context, from string, requestID int) error
	CreateCampaign(ctx context.Context, from, title, description string, goal *big.Int, deadline int64) error
	ToggleCampaignActive(ctx context.Context, from string, campaignIndex int) error
	WithdrawCampaignFunds(ctx context.Context, from string, campaignIndex int) error
	Donate(ctx context.Context, from, charity string, campaignIndex int, amount *big.Int, message string) error
	SetMinimumDonation(ctx context.Context, from string, amount *big.Int) error
	SetPaused(ctx context.Context, from string, paused bool) error
}

// WalletProvider is the external wallet tooling the session engine reacts to.
// It owns account authorization and revocation; the engine never sees keys.
type WalletProvider interface {
	// SelectedAddress returns the already-authorized address, or "" when the
	// environment has none. Used for the silent auto-connect at startup.
	SelectedAddress(ctx context.Context) (string, error)

	// RequestAccounts prompts the wallet for account access and returns the
	// authorized addresses, primary first. An empty result or an error means
	// the user declined.
	RequestAccounts(ctx context.Context) ([]string, error)
}
