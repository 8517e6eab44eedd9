package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"givechain/internal/give"
	"givechain/internal/model"
)

// MemoryLedger is an in-process implementation of the Gateway interface.
// It applies the same write rules the deployed contract enforces (owner-only
// admin calls, pause gating, minimum donation), making the full read/write
// surface exercisable in tests and local demos. Safe for concurrent use.
type MemoryLedger struct {
	clock give.Clock

	mu            sync.RWMutex
	owner         string
	paused        bool
	minDonation   *big.Int
	charityOrder  []string // enumeration order, original case
	charities     map[string]*model.Charity // keyed by lowercased address
	requests      []*model.CharityRequest
	campaigns     map[string][]*model.Campaign // keyed by lowercased charity address
	donations     map[model.CampaignRef][]*model.Donation
}

// NewMemoryLedger creates an empty ledger owned by the given address, with
// the minimum donation defaulting to 0.01 in display units.
func NewMemoryLedger(owner string, clock give.Clock) *MemoryLedger {
	min, _ := new(big.Int).SetString("10000000000000000", 10) // 0.01 * 10^18
	return &MemoryLedger{
		clock:       clock,
		owner:       owner,
		minDonation: min,
		charities:   make(map[string]*model.Charity),
		campaigns:   make(map[string][]*model.Campaign),
		donations:   make(map[model.CampaignRef][]*model.Donation),
	}
}

func addrKey(address string) string { return strings.ToLower(address) }

func (m *MemoryLedger) ListCharityAddresses(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.charityOrder))
	copy(out, m.charityOrder)
	return out, nil
}

func (m *MemoryLedger) GetCharity(_ context.Context, address string) (*model.Charity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charities[addrKey(address)]
	if !ok {
		// Unknown addresses read as the zero charity, like a contract mapping.
		return &model.Charity{Address: address}, nil
	}
	copied := *c
	return &copied, nil
}

func (m *MemoryLedger) ListCharityRequests(_ context.Context) ([]*model.CharityRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CharityRequest, len(m.requests))
	for i, r := range m.requests {
		copied := *r
		out[i] = &copied
	}
	return out, nil
}

func (m *MemoryLedger) ListCampaigns(_ context.Context, charity string) ([]*model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.campaigns[addrKey(charity)]
	out := make([]*model.Campaign, len(list))
	for i, c := range list {
		out[i] = copyCampaign(c)
	}
	return out, nil
}

func (m *MemoryLedger) ListDonations(_ context.Context, charity string, campaignIndex int) ([]*model.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref := model.CampaignRef{Charity: addrKey(charity), Index: campaignIndex}
	list := m.donations[ref]
	out := make([]*model.Donation, len(list))
	for i, d := range list {
		copied := *d
		copied.Amount = new(big.Int).Set(d.Amount)
		out[i] = &copied
	}
	return out, nil
}

func (m *MemoryLedger) GetPlatformConfig(_ context.Context) (*model.PlatformConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &model.PlatformConfig{
		MinimumDonation: new(big.Int).Set(m.minDonation),
		Paused:          m.paused,
	}, nil
}

func (m *MemoryLedger) GetOwner(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner, nil
}

func (m *MemoryLedger) SubmitCharityRequest(_ context.Context, from, name, description, metadataURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		return fmt.Errorf("%w: platform is paused", give.ErrLedgerRejected)
	}
	for _, r := range m.requests {
		if !r.Approved && strings.EqualFold(r.Requester, from) {
			return fmt.Errorf("%w: pending request already exists for %s", give.ErrLedgerRejected, from)
		}
	}
	m.requests = append(m.requests, &model.CharityRequest{
		ID:          len(m.requests),
		Requester:   from,
		Name:        name,
		Description: description,
		MetadataURL: metadataURL,
	})
	return nil
}

func (m *MemoryLedger) ApproveCharityRequest(_ context.Context, from string, requestID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.EqualFold(from, m.owner) {
		return fmt.Errorf("%w: only the owner can approve requests", give.ErrLedgerRejected)
	}
	if requestID < 0 || requestID >= len(m.requests) {
		return fmt.Errorf("%w: no such request %d", give.ErrLedgerRejected, requestID)
	}
	req := m.requests[requestID]
	if req.Approved {
		return fmt.Errorf("%w: request %d already approved", give.ErrLedgerRejected, requestID)
	}
	req.Approved = true

	key := addrKey(req.Requester)
	if _, exists := m.charities[key]; !exists {
		m.charityOrder = append(m.charityOrder, req.Requester)
	}
	m.charities[key] = &model.Charity{
		Address:     req.Requester,
		Name:        req.Name,
		Description: req.Description,
		MetadataURL: req.MetadataURL,
		IsActive:    true,
	}
	return nil
}

func (m *MemoryLedger) CreateCampaign(_ context.Context, from, title, description string, goal *big.Int, deadline int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		return fmt.Errorf("%w: platform is paused", give.ErrLedgerRejected)
	}
	charity, ok := m.charities[addrKey(from)]
	if !ok || !charity.IsActive {
		return fmt.Errorf("%w: %s is not an active charity", give.ErrLedgerRejected, from)
	}
	if goal == nil || goal.Sign() <= 0 {
		return fmt.Errorf("%w: campaign goal must be positive", give.ErrLedgerRejected)
	}
	key := addrKey(from)
	m.campaigns[key] = append(m.campaigns[key], &model.Campaign{
		Charity:      from,
		Index:        len(m.campaigns[key]),
		Title:        title,
		Description:  description,
		GoalAmount:   new(big.Int).Set(goal),
		TotalDonated: new(big.Int),
		Deadline:     deadline,
		IsActive:     true,
	})
	return nil
}

func (m *MemoryLedger) ToggleCampaignActive(_ context.Context, from string, campaignIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.campaignOf(from, campaignIndex)
	if err != nil {
		return err
	}
	c.IsActive = !c.IsActive
	return nil
}

func (m *MemoryLedger) WithdrawCampaignFunds(_ context.Context, from string, campaignIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.campaignOf(from, campaignIndex)
	if err != nil {
		return err
	}
	if c.TotalDonated.Sign() == 0 {
		return fmt.Errorf("%w: nothing to withdraw", give.ErrLedgerRejected)
	}
	// Funds move on chain; TotalDonated stays as the cumulative raised amount.
	return nil
}

func (m *MemoryLedger) Donate(_ context.Context, from, charity string, campaignIndex int, amount *big.Int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		return fmt.Errorf("%w: platform is paused", give.ErrLedgerRejected)
	}
	c, err := m.campaignOf(charity, campaignIndex)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return fmt.Errorf("%w: campaign is not active", give.ErrLedgerRejected)
	}
	if c.Deadline <= m.clock.Now().Unix() {
		return fmt.Errorf("%w: campaign deadline has passed", give.ErrLedgerRejected)
	}
	if amount == nil || amount.Cmp(m.minDonation) < 0 {
		return fmt.Errorf("%w: donation below platform minimum", give.ErrLedgerRejected)
	}

	c.TotalDonated.Add(c.TotalDonated, amount)
	ref := model.CampaignRef{Charity: addrKey(charity), Index: campaignIndex}
	m.donations[ref] = append(m.donations[ref], &model.Donation{
		Donor:     from,
		Amount:    new(big.Int).Set(amount),
		Timestamp: m.clock.Now().Unix(),
		Message:   message,
	})
	return nil
}

func (m *MemoryLedger) SetMinimumDonation(_ context.Context, from string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.EqualFold(from, m.owner) {
		return fmt.Errorf("%w: only the owner can set the minimum donation", give.ErrLedgerRejected)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: minimum donation must be non-negative", give.ErrLedgerRejected)
	}
	m.minDonation = new(big.Int).Set(amount)
	return nil
}

func (m *MemoryLedger) SetPaused(_ context.Context, from string, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.EqualFold(from, m.owner) {
		return fmt.Errorf("%w: only the owner can pause the platform", give.ErrLedgerRejected)
	}
	m.paused = paused
	return nil
}

// campaignOf returns the live campaign record. Callers must hold the lock.
func (m *MemoryLedger) campaignOf(charity string, index int) (*model.Campaign, error) {
	list := m.campaigns[addrKey(charity)]
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: no campaign %d for %s", give.ErrLedgerRejected, index, charity)
	}
	return list[index], nil
}

func copyCampaign(c *model.Campaign) *model.Campaign {
	copied := *c
	copied.GoalAmount = new(big.Int).Set(c.GoalAmount)
	copied.TotalDonated = new(big.Int).Set(c.TotalDonated)
	return &copied
}
