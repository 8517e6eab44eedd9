package give

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"givechain/internal/model"
)

// Defaults for snapshot sizing and gateway fan-out.
const (
	DefaultTopCampaigns    = 5
	DefaultRecentCampaigns = 3
	DefaultConcurrency     = 8

	recentDonationLimit = 5
)

// Scope selects what an aggregation pass covers: the whole platform or a
// single charity's campaigns.
type Scope struct {
	charity string
}

// PlatformScope covers every charity the ledger enumerates.
func PlatformScope() Scope { return Scope{} }

// CharityScope covers a single charity, identified by address.
func CharityScope(address string) Scope { return Scope{charity: address} }

// Platform reports whether the scope is platform-wide.
func (s Scope) Platform() bool { return s.charity == "" }

func (s Scope) String() string {
	if s.Platform() {
		return "platform"
	}
	return s.charity
}

// AggregateOptions tunes a single aggregation pass.
type AggregateOptions struct {
	// WithDonors additionally fetches donations for the campaigns the
	// snapshot surfaces (top + recent), to compute donor cardinality and
	// recent donations. This is the expensive path: it is bounded to those
	// campaigns and never walks every donation on the platform.
	WithDonors bool

	// IncludeAll additionally carries every fetched campaign on the
	// snapshot, in enumeration order. Used by full listing views.
	IncludeAll bool

	// TopN and RecentN size the ranked and most-recent campaign lists.
	// Zero means the defaults.
	TopN    int
	RecentN int
}

// CampaignStat is a campaign plus the properties derived from it at
// aggregation time.
type CampaignStat struct {
	*model.Campaign

	// EffectivelyActive means flagged active AND not past deadline, judged
	// against the time pinned at the start of the pass.
	EffectivelyActive bool
	Progress          float64
	DaysLeft          int64
}

// Snapshot is the immutable result of one aggregation pass. It is never
// updated in place; after a write, callers run a fresh pass.
type Snapshot struct {
	ID      string // correlates log lines of the pass that produced it
	TakenAt time.Time
	Scope   Scope

	Charities       int
	Campaigns       int
	ActiveCampaigns int
	TotalDonated    *big.Int // minor units, exact

	// DistinctDonors and RecentDonations are only populated when the pass
	// ran with WithDonors.
	DistinctDonors  int
	RecentDonations []*model.Donation

	TopCampaigns    []*CampaignStat // by amount raised desc
	RecentCampaigns []*CampaignStat // by creation recency
	AllCampaigns    []*CampaignStat // only with AggregateOptions.IncludeAll

	// Complete is false when any per-charity or per-campaign fetch failed.
	// Failed lists the scopes that could not be fetched (charity addresses
	// and charity#index campaign refs), so callers can disclose exactly
	// what the totals are missing.
	Complete bool
	Failed   []string
}

// Aggregator walks the ledger's charity → campaign → donation hierarchy and
// folds it into Snapshots. It holds no state between passes; every call owns
// its own accumulator, so an abandoned call cannot corrupt a concurrent one.
type Aggregator struct {
	gateway     Gateway
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	concurrency int
}

// NewAggregator creates an Aggregator. concurrency bounds how many gateway
// fetches run at once; values below 1 fall back to DefaultConcurrency.
func NewAggregator(gateway Gateway, logger Logger, clock Clock, idgen IDGenerator, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		gateway:     gateway,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		concurrency: concurrency,
	}
}

// Aggregate runs one best-effort pass over the given scope.
//
// A charity or campaign that cannot be fetched is recorded in
// Snapshot.Failed and the pass continues; partial numbers with
// Complete=false beat no numbers. Only when nothing at all could be
// fetched does Aggregate return ErrAggregationFailed. The pass never
// retries on its own — retry policy belongs to the caller.
func (a *Aggregator) Aggregate(ctx context.Context, scope Scope, opts AggregateOptions) (*Snapshot, error) {
	// Pin the pass time once so active/expired classification cannot skew
	// across the fan-out.
	now := a.clock.Now()

	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopCampaigns
	}
	recentN := opts.RecentN
	if recentN <= 0 {
		recentN = DefaultRecentCampaigns
	}

	var addresses []string
	if scope.Platform() {
		addrs, err := a.gateway.ListCharityAddresses(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: listing charities: %v", ErrAggregationFailed, err)
		}
		addresses = addrs
	} else {
		addresses = []string{scope.charity}
	}

	a.logger.Debug("aggregation started", "scope", scope.String(), "charities", len(addresses))

	type charityResult struct {
		campaigns []*model.Campaign
		err       error
	}
	results := make([]charityResult, len(addresses))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i, addr := range addresses {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			campaigns, err := a.gateway.ListCampaigns(ctx, addr)
			results[i] = charityResult{campaigns: campaigns, err: err}
		}(i, addr)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:           a.idgen.New(),
		TakenAt:      now,
		Scope:        scope,
		TotalDonated: new(big.Int),
		Complete:     true,
	}

	nowUnix := now.Unix()
	var stats []*CampaignStat
	for i, addr := range addresses {
		res := results[i]
		if res.err != nil {
			a.logger.Warn("charity fetch failed", "charity", addr, "error", res.err)
			snap.Failed = append(snap.Failed, addr)
			snap.Complete = false
			continue
		}
		snap.Charities++
		for _, c := range res.campaigns {
			st := &CampaignStat{
				Campaign:          c,
				EffectivelyActive: c.IsActive && c.Deadline > nowUnix,
				Progress:          ProgressPercent(c.TotalDonated, c.GoalAmount),
				DaysLeft:          DaysRemaining(c.Deadline, nowUnix),
			}
			snap.Campaigns++
			if st.EffectivelyActive {
				snap.ActiveCampaigns++
			}
			if c.TotalDonated != nil {
				snap.TotalDonated.Add(snap.TotalDonated, c.TotalDonated)
			}
			stats = append(stats, st)
		}
	}

	if snap.Charities == 0 && len(addresses) > 0 {
		return nil, fmt.Errorf("%w: all %d charities unreachable", ErrAggregationFailed, len(addresses))
	}

	snap.TopCampaigns = rankCampaigns(stats, addresses, topN)
	if opts.IncludeAll {
		snap.AllCampaigns = stats
	}

	// Campaign lists are append-only, so creation recency is reverse
	// enumeration order.
	for i := len(stats) - 1; i >= 0 && len(snap.RecentCampaigns) < recentN; i-- {
		snap.RecentCampaigns = append(snap.RecentCampaigns, stats[i])
	}

	if opts.WithDonors {
		a.collectDonors(ctx, snap)
	}

	a.logger.Debug("aggregation finished",
		"snapshot", snap.ID,
		"scope", scope.String(),
		"campaigns", snap.Campaigns,
		"complete", snap.Complete)

	return snap, nil
}

// rankCampaigns orders campaigns by amount raised descending; ties go to the
// earlier deadline, then to charity enumeration order, then to campaign
// index. The full key makes the ranking deterministic: re-running over
// unchanged input yields an identical order.
func rankCampaigns(stats []*CampaignStat, addresses []string, topN int) []*CampaignStat {
	pos := make(map[string]int, len(addresses))
	for i, addr := range addresses {
		pos[addr] = i
	}

	ranked := make([]*CampaignStat, len(stats))
	copy(ranked, stats)
	sort.Slice(ranked, func(i, j int) bool {
		x, y := ranked[i], ranked[j]
		if c := cmpAmount(x.TotalDonated, y.TotalDonated); c != 0 {
			return c > 0
		}
		if x.Deadline != y.Deadline {
			return x.Deadline < y.Deadline
		}
		if pos[x.Charity] != pos[y.Charity] {
			return pos[x.Charity] < pos[y.Charity]
		}
		return x.Index < y.Index
	})

	return ranked[:min(topN, len(ranked))]
}

// collectDonors fans out to the donation lists of the campaigns the snapshot
// surfaces and fills in donor cardinality and recent donations. Per-campaign
// failures mark the snapshot incomplete instead of aborting it.
func (a *Aggregator) collectDonors(ctx context.Context, snap *Snapshot) {
	seen := make(map[model.CampaignRef]bool)
	var refs []model.CampaignRef
	for _, st := range snap.TopCampaigns {
		if !seen[st.Ref()] {
			seen[st.Ref()] = true
			refs = append(refs, st.Ref())
		}
	}
	for _, st := range snap.RecentCampaigns {
		if !seen[st.Ref()] {
			seen[st.Ref()] = true
			refs = append(refs, st.Ref())
		}
	}

	type donationResult struct {
		donations []*model.Donation
		err       error
	}
	results := make([]donationResult, len(refs))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref model.CampaignRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			donations, err := a.gateway.ListDonations(ctx, ref.Charity, ref.Index)
			results[i] = donationResult{donations: donations, err: err}
		}(i, ref)
	}
	wg.Wait()

	donors := make(map[string]bool)
	var all []*model.Donation
	for i, ref := range refs {
		res := results[i]
		if res.err != nil {
			a.logger.Warn("donation fetch failed", "campaign", ref.String(), "error", res.err)
			snap.Failed = append(snap.Failed, ref.String())
			snap.Complete = false
			continue
		}
		for _, d := range res.donations {
			donors[strings.ToLower(d.Donor)] = true
			all = append(all, d)
		}
	}
	snap.DistinctDonors = len(donors)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})
	snap.RecentDonations = all[:min(recentDonationLimit, len(all))]
}

// cmpAmount compares two minor-unit amounts, treating nil as zero.
func cmpAmount(a, b *big.Int) int {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b)
}
