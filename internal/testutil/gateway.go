package testutil

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"givechain/internal/give"
	"givechain/internal/model"
)

// ScriptedGateway wraps a real Gateway with per-scope failure injection and
// call accounting. The zero failure maps pass everything through.
type ScriptedGateway struct {
	Inner give.Gateway

	mu               sync.Mutex
	failAddresses    error
	failOwner        error
	failCampaignsFor map[string]error
	failDonationsFor map[string]error
	calls            map[string]int
	inFlight         int
	maxInFlight      int
}

func NewScriptedGateway(inner give.Gateway) *ScriptedGateway {
	return &ScriptedGateway{
		Inner:            inner,
		failCampaignsFor: make(map[string]error),
		failDonationsFor: make(map[string]error),
		calls:            make(map[string]int),
	}
}

// FailAddresses makes ListCharityAddresses fail.
func (g *ScriptedGateway) FailAddresses(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAddresses = err
}

// FailOwner makes GetOwner fail.
func (g *ScriptedGateway) FailOwner(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOwner = err
}

// FailCampaignsFor makes ListCampaigns fail for one charity.
func (g *ScriptedGateway) FailCampaignsFor(charity string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failCampaignsFor[strings.ToLower(charity)] = err
}

// FailDonationsFor makes ListDonations fail for one campaign.
func (g *ScriptedGateway) FailDonationsFor(charity string, index int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failDonationsFor[fmt.Sprintf("%s#%d", strings.ToLower(charity), index)] = err
}

// Calls reports how many times the named method was invoked.
func (g *ScriptedGateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

// MaxInFlight reports the peak number of concurrently running calls.
func (g *ScriptedGateway) MaxInFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxInFlight
}

func (g *ScriptedGateway) enter(method string) {
	g.mu.Lock()
	g.calls[method]++
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	g.mu.Unlock()
}

func (g *ScriptedGateway) exit() {
	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
}

func (g *ScriptedGateway) ListCharityAddresses(ctx context.Context) ([]string, error) {
	g.enter("ListCharityAddresses")
	defer g.exit()
	g.mu.Lock()
	err := g.failAddresses
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return g.Inner.ListCharityAddresses(ctx)
}

func (g *ScriptedGateway) GetCharity(ctx context.Context, address string) (*model.Charity, error) {
	g.enter("GetCharity")
	defer g.exit()
	return g.Inner.GetCharity(ctx, address)
}

func (g *ScriptedGateway) ListCharityRequests(ctx context.Context) ([]*model.CharityRequest, error) {
	g.enter("ListCharityRequests")
	defer g.exit()
	return g.Inner.ListCharityRequests(ctx)
}

func (g *ScriptedGateway) ListCampaigns(ctx context.Context, charity string) ([]*model.Campaign, error) {
	g.enter("ListCampaigns")
	defer g.exit()
	g.mu.Lock()
	err := g.failCampaignsFor[strings.ToLower(charity)]
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return g.Inner.ListCampaigns(ctx, charity)
}

func (g *ScriptedGateway) ListDonations(ctx context.Context, charity string, campaignIndex int) ([]*model.Donation, error) {
	g.enter("ListDonations")
	defer g.exit()
	g.mu.Lock()
	err := g.failDonationsFor[fmt.Sprintf("%s#%d", strings.ToLower(charity), campaignIndex)]
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return g.Inner.ListDonations(ctx, charity, campaignIndex)
}

func (g *ScriptedGateway) GetPlatformConfig(ctx context.Context) (*model.PlatformConfig, error) {
	g.enter("GetPlatformConfig")
	defer g.exit()
	return g.Inner.GetPlatformConfig(ctx)
}

func (g *ScriptedGateway) GetOwner(ctx context.Context) (string, error) {
	g.enter("GetOwner")
	defer g.exit()
	g.mu.Lock()
	err := g.failOwner
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return g.Inner.GetOwner(ctx)
}

func (g *ScriptedGateway) SubmitCharityRequest(ctx context.Context, from, name, description, metadataURL string) error {
	g.enter("SubmitCharityRequest")
	defer g.exit()
	return g.Inner.SubmitCharityRequest(ctx, from, name, description, metadataURL)
}

func (g *ScriptedGateway) ApproveCharityRequest(ctx context.Context, from string, requestID int) error {
	g.enter("ApproveCharityRequest")
	defer g.exit()
	return g.Inner.ApproveCharityRequest(ctx, from, requestID)
}

func (g *ScriptedGateway) CreateCampaign(ctx context.Context, from, title, description string, goal *big.Int, deadline int64) error {
	g.enter("CreateCampaign")
	defer g.exit()
	return g.Inner.CreateCampaign(ctx, from, title, description, goal, deadline)
}

func (g *ScriptedGateway) ToggleCampaignActive(ctx context.Context, from string, campaignIndex int) error {
	g.enter("ToggleCampaignActive")
	defer g.exit()
	return g.Inner.ToggleCampaignActive(ctx, from, campaignIndex)
}

func (g *ScriptedGateway) WithdrawCampaignFunds(ctx context.Context, from string, campaignIndex int) error {
	g.enter("WithdrawCampaignFunds")
	defer g.exit()
	return g.Inner.WithdrawCampaignFunds(ctx, from, campaignIndex)
}

func (g *ScriptedGateway) Donate(ctx context.Context, from, charity string, campaignIndex int, amount *big.Int, message string) error {
	g.enter("Donate")
	defer g.exit()
	return g.Inner.Donate(ctx, from, charity, campaignIndex, amount, message)
}

func (g *ScriptedGateway) SetMinimumDonation(ctx context.Context, from string, amount *big.Int) error {
	g.enter("SetMinimumDonation")
	defer g.exit()
	return g.Inner.SetMinimumDonation(ctx, from, amount)
}

func (g *ScriptedGateway) SetPaused(ctx context.Context, from string, paused bool) error {
	g.enter("SetPaused")
	defer g.exit()
	return g.Inner.SetPaused(ctx, from, paused)
}
