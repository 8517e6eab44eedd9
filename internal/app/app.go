package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"givechain/internal/config"
	"givechain/internal/give"
	"givechain/internal/ledger"
	"givechain/internal/model"
)

// GiveApp is the application layer between the CLI (or HTTP server) and the
// engines. It constructs all dependencies from config, exposes high-level
// operations that accept raw strings, and manages the gateway lifecycle on
// Close.
type GiveApp struct {
	cfg        *config.Config
	gateway    give.Gateway
	eth        *ledger.EthGateway // non-nil only for ledger type "eth"
	aggregator *give.Aggregator
	session    *give.Session
	logger     give.Logger
	logFile    *os.File
}

// NewGiveApp creates a fully wired GiveApp from the given config.
// operation identifies the CLI command being run (e.g. "Stats", "Donate").
// The caller must call Close when done.
func NewGiveApp(cfg *config.Config, operation string) (*GiveApp, error) {
	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}
	logger.Debug("starting", "operation", operation)

	clock := give.RealClock{}
	gateway, err := ledger.NewGatewayFromConfig(context.Background(), cfg.Ledger, nil, clock, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating ledger gateway: %w", err)
	}
	eth, _ := gateway.(*ledger.EthGateway)

	wallet := &staticWallet{address: cfg.Wallet.Address}
	session := give.NewSession(gateway, wallet, logger)
	aggregator := give.NewAggregator(gateway, logger, clock, give.UUIDGenerator{}, cfg.Aggregation.Concurrency)

	return &GiveApp{
		cfg:        cfg,
		gateway:    gateway,
		eth:        eth,
		aggregator: aggregator,
		session:    session,
		logger:     logger,
		logFile:    logFile,
	}, nil
}

// Session exposes the wallet session engine.
func (a *GiveApp) Session() *give.Session { return a.session }

// Resume attempts the silent auto-connect once at startup.
func (a *GiveApp) Resume(ctx context.Context) give.SessionState {
	return a.session.Resume(ctx)
}

// Connect requests wallet access and derives roles for the account.
func (a *GiveApp) Connect(ctx context.Context) (give.SessionState, error) {
	return a.session.Connect(ctx)
}

// Stats computes a snapshot for the platform or, when charity is non-empty,
// a single charity. withDonors additionally computes donor cardinality and
// recent donations.
func (a *GiveApp) Stats(ctx context.Context, charity string, withDonors bool) (*give.Snapshot, error) {
	scope := give.PlatformScope()
	if charity != "" {
		scope = give.CharityScope(charity)
	}
	return a.aggregator.Aggregate(ctx, scope, give.AggregateOptions{
		WithDonors: withDonors,
		TopN:       a.cfg.Aggregation.TopCampaigns,
		RecentN:    a.cfg.Aggregation.RecentCampaigns,
	})
}

// Campaigns returns every campaign in scope with its derived stats, in
// ledger enumeration order.
func (a *GiveApp) Campaigns(ctx context.Context, charity string) (*give.Snapshot, error) {
	scope := give.PlatformScope()
	if charity != "" {
		scope = give.CharityScope(charity)
	}
	return a.aggregator.Aggregate(ctx, scope, give.AggregateOptions{
		IncludeAll: true,
		TopN:       a.cfg.Aggregation.TopCampaigns,
		RecentN:    a.cfg.Aggregation.RecentCampaigns,
	})
}

// Requests lists charity registration requests, optionally only the pending
// ones.
func (a *GiveApp) Requests(ctx context.Context, pendingOnly bool) ([]*model.CharityRequest, error) {
	requests, err := a.gateway.ListCharityRequests(ctx)
	if err != nil {
		return nil, err
	}
	if !pendingOnly {
		return requests, nil
	}
	var pending []*model.CharityRequest
	for _, r := range requests {
		if !r.Approved {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// Donate validates the display amount locally, checks the platform minimum,
// and submits the donation. The validation never reaches the gateway.
func (a *GiveApp) Donate(ctx context.Context, charity string, campaignIndex int, amount, message string) error {
	minor, err := give.ParseAmount(amount)
	if err != nil {
		return err
	}
	pc, err := a.gateway.GetPlatformConfig(ctx)
	if err != nil {
		return fmt.Errorf("reading platform config: %w", err)
	}
	if pc.Paused {
		return fmt.Errorf("%w: platform is paused", give.ErrLedgerRejected)
	}
	if minor.Cmp(pc.MinimumDonation) < 0 {
		return fmt.Errorf("%w: %s is below the platform minimum of %s",
			give.ErrInvalidAmount, amount, give.FormatAmount(pc.MinimumDonation))
	}

	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("Donate")
	return a.gateway.Donate(ctx, from, charity, campaignIndex, minor, message)
}

// RequestCharity submits a charity registration request for the acting
// account.
func (a *GiveApp) RequestCharity(ctx context.Context, name, description, metadataURL string) error {
	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("RequestCharity")
	return a.gateway.SubmitCharityRequest(ctx, from, name, description, metadataURL)
}

// ApproveRequest approves a pending charity registration request.
// Ledger-side authorization applies: only the platform owner succeeds.
func (a *GiveApp) ApproveRequest(ctx context.Context, requestID int) error {
	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("ApproveRequest")
	return a.gateway.ApproveCharityRequest(ctx, from, requestID)
}

// CreateCampaign creates a campaign for the acting charity. durationDays is
// converted to an absolute deadline against the current time.
func (a *GiveApp) CreateCampaign(ctx context.Context, title, description, goal string, durationDays int) error {
	minor, err := give.ParseAmount(goal)
	if err != nil {
		return err
	}
	if durationDays <= 0 {
		return fmt.Errorf("%w: campaign duration must be at least one day", give.ErrInvalidDuration)
	}
	deadline := time.Now().Add(time.Duration(durationDays) * 24 * time.Hour).Unix()

	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("CreateCampaign")
	return a.gateway.CreateCampaign(ctx, from, title, description, minor, deadline)
}

// ToggleCampaign flips the active flag of one of the acting charity's
// campaigns.
func (a *GiveApp) ToggleCampaign(ctx context.Context, campaignIndex int) error {
	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("ToggleCampaign")
	return a.gateway.ToggleCampaignActive(ctx, from, campaignIndex)
}

// WithdrawCampaign withdraws the raised funds of one of the acting
// charity's campaigns.
func (a *GiveApp) WithdrawCampaign(ctx context.Context, campaignIndex int) error {
	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("WithdrawCampaign")
	return a.gateway.WithdrawCampaignFunds(ctx, from, campaignIndex)
}

// SetMinimumDonation sets the platform-wide donation minimum.
func (a *GiveApp) SetMinimumDonation(ctx context.Context, amount string) error {
	minor, err := give.ParseAmount(amount)
	if err != nil {
		return err
	}
	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("SetMinimumDonation")
	return a.gateway.SetMinimumDonation(ctx, from, minor)
}

// SetPaused pauses or unpauses the platform.
func (a *GiveApp) SetPaused(ctx context.Context, paused bool) error {
	from, err := a.from()
	if err != nil {
		return err
	}
	defer a.markStale("SetPaused")
	return a.gateway.SetPaused(ctx, from, paused)
}

// PlatformConfig reads the current platform parameters.
func (a *GiveApp) PlatformConfig(ctx context.Context) (*model.PlatformConfig, error) {
	return a.gateway.GetPlatformConfig(ctx)
}

// Gateway exposes the ledger gateway for collaborators that take one
// directly, like the HTTP server.
func (a *GiveApp) Gateway() give.Gateway { return a.gateway }

// Aggregator exposes the aggregation engine.
func (a *GiveApp) Aggregator() *give.Aggregator { return a.aggregator }

// Logger exposes the application logger.
func (a *GiveApp) Logger() give.Logger { return a.logger }

// Close releases the gateway connection and the log file.
func (a *GiveApp) Close() error {
	if a.eth != nil {
		a.eth.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return nil
}

// from resolves the acting account: the connected session account when
// there is one, the configured wallet address otherwise.
func (a *GiveApp) from() (string, error) {
	if st := a.session.State(); st.Connected() {
		return st.Account, nil
	}
	if a.cfg.Wallet.Address != "" {
		return a.cfg.Wallet.Address, nil
	}
	return "", errors.New("no wallet account available: connect or set wallet.address in config")
}

// markStale records that the ledger may have changed. Any snapshot computed
// before this point must not be trusted; callers re-aggregate on demand.
// This holds whether the write succeeded or failed.
func (a *GiveApp) markStale(operation string) {
	a.logger.Info("ledger write attempted; prior snapshots are stale", "operation", operation)
}

// staticWallet is the CLI's WalletProvider: a single configured address,
// always authorized, never prompting. Signing stays with external tooling.
type staticWallet struct {
	address string
}

func (w *staticWallet) SelectedAddress(_ context.Context) (string, error) {
	return w.address, nil
}

func (w *staticWallet) RequestAccounts(_ context.Context) ([]string, error) {
	if w.address == "" {
		return nil, nil
	}
	return []string{w.address}, nil
}
