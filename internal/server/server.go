package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"givechain/internal/config"
	"givechain/internal/give"
	"givechain/internal/model"
)

// Server is the read-only JSON API browser front ends fetch from. It only
// ever reads: every write goes through wallet tooling on the client side,
// so the server needs no accounts and no signing.
type Server struct {
	aggregator *give.Aggregator
	gateway    give.Gateway
	aggCfg     config.AggregationConfig
	logger     give.Logger
	engine     *gin.Engine
}

// New creates the server and registers its routes.
func New(aggregator *give.Aggregator, gateway give.Gateway, srvCfg config.ServerConfig, aggCfg config.AggregationConfig, logger give.Logger) *Server {
	s := &Server{
		aggregator: aggregator,
		gateway:    gateway,
		aggCfg:     aggCfg,
		logger:     logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(srvCfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = srvCfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	engine.Use(cors.New(corsCfg))

	engine.GET("/healthz", s.health)

	api := engine.Group("/api")
	{
		api.GET("/stats", s.getStats)
		api.GET("/campaigns", s.getCampaigns)
		api.GET("/charities", s.getCharities)
		api.GET("/requests", s.getRequests)
		api.GET("/config", s.getPlatformConfig)
	}

	s.engine = engine
	return s
}

// Handler exposes the route tree for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run(listen string) error {
	s.logger.Info("http server listening", "addr", listen)
	return s.engine.Run(listen)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getStats returns the aggregate snapshot, platform-wide or for a single
// charity via ?charity=0x... . Donor detail is opt-in via ?donors=true
// because it is the expensive fan-out.
func (s *Server) getStats(c *gin.Context) {
	scope := give.PlatformScope()
	if charity := c.Query("charity"); charity != "" {
		scope = give.CharityScope(charity)
	}
	withDonors, _ := strconv.ParseBool(c.DefaultQuery("donors", "false"))

	snap, err := s.aggregator.Aggregate(c.Request.Context(), scope, give.AggregateOptions{
		WithDonors: withDonors,
		TopN:       s.aggCfg.TopCampaigns,
		RecentN:    s.aggCfg.RecentCampaigns,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshotDTO(snap))
}

func (s *Server) getCampaigns(c *gin.Context) {
	scope := give.PlatformScope()
	if charity := c.Query("charity"); charity != "" {
		scope = give.CharityScope(charity)
	}

	snap, err := s.aggregator.Aggregate(c.Request.Context(), scope, give.AggregateOptions{
		IncludeAll: true,
		TopN:       s.aggCfg.TopCampaigns,
		RecentN:    s.aggCfg.RecentCampaigns,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"complete":  snap.Complete,
		"failed":    snap.Failed,
		"campaigns": campaignDTOs(snap.AllCampaigns),
	})
}

func (s *Server) getCharities(c *gin.Context) {
	ctx := c.Request.Context()
	addresses, err := s.gateway.ListCharityAddresses(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	charities := make([]charityJSON, 0, len(addresses))
	complete := true
	var failed []string
	for _, addr := range addresses {
		charity, err := s.gateway.GetCharity(ctx, addr)
		if err != nil {
			s.logger.Warn("charity fetch failed", "charity", addr, "error", err)
			failed = append(failed, addr)
			complete = false
			continue
		}
		charities = append(charities, charityJSON{
			Address:     charity.Address,
			Name:        charity.Name,
			Description: charity.Description,
			MetadataURL: charity.MetadataURL,
			Active:      charity.IsActive,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"complete":  complete,
		"failed":    failed,
		"charities": charities,
	})
}

func (s *Server) getRequests(c *gin.Context) {
	pendingOnly, _ := strconv.ParseBool(c.DefaultQuery("pending", "false"))

	requests, err := s.gateway.ListCharityRequests(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]requestJSON, 0, len(requests))
	for _, r := range requests {
		if pendingOnly && r.Approved {
			continue
		}
		out = append(out, requestJSON{
			ID:          r.ID,
			Requester:   r.Requester,
			Name:        r.Name,
			Description: r.Description,
			MetadataURL: r.MetadataURL,
			Approved:    r.Approved,
		})
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *Server) getPlatformConfig(c *gin.Context) {
	pc, err := s.gateway.GetPlatformConfig(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"minimum_donation": give.FormatAmount(pc.MinimumDonation),
		"paused":           pc.Paused,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	status := http.StatusBadGateway
	if errors.Is(err, give.ErrMalformedResponse) {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type charityJSON struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MetadataURL string `json:"metadata_url"`
	Active      bool   `json:"active"`
}

type requestJSON struct {
	ID          int    `json:"id"`
	Requester   string `json:"requester"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MetadataURL string `json:"metadata_url"`
	Approved    bool   `json:"approved"`
}

type campaignJSON struct {
	Charity     string  `json:"charity"`
	Index       int     `json:"index"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Goal        string  `json:"goal"`
	Raised      string  `json:"raised"`
	Deadline    int64   `json:"deadline"`
	DaysLeft    int64   `json:"days_left"`
	Progress    float64 `json:"progress"`
	Active      bool    `json:"active"`
}

type donationJSON struct {
	Donor     string `json:"donor"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

type snapshotJSON struct {
	ID              string         `json:"id"`
	TakenAt         int64          `json:"taken_at"`
	Scope           string         `json:"scope"`
	Charities       int            `json:"charities"`
	Campaigns       int            `json:"campaigns"`
	ActiveCampaigns int            `json:"active_campaigns"`
	TotalDonated    string         `json:"total_donated"`
	DistinctDonors  int            `json:"distinct_donors"`
	Top             []campaignJSON `json:"top_campaigns"`
	Recent          []campaignJSON `json:"recent_campaigns"`
	RecentDonations []donationJSON `json:"recent_donations"`
	Complete        bool           `json:"complete"`
	Failed          []string       `json:"failed,omitempty"`
}

func snapshotDTO(snap *give.Snapshot) snapshotJSON {
	return snapshotJSON{
		ID:              snap.ID,
		TakenAt:         snap.TakenAt.Unix(),
		Scope:           snap.Scope.String(),
		Charities:       snap.Charities,
		Campaigns:       snap.Campaigns,
		ActiveCampaigns: snap.ActiveCampaigns,
		TotalDonated:    give.FormatAmount(snap.TotalDonated),
		DistinctDonors:  snap.DistinctDonors,
		Top:             campaignDTOs(snap.TopCampaigns),
		Recent:          campaignDTOs(snap.RecentCampaigns),
		RecentDonations: donationDTOs(snap.RecentDonations),
		Complete:        snap.Complete,
		Failed:          snap.Failed,
	}
}

func campaignDTOs(stats []*give.CampaignStat) []campaignJSON {
	out := make([]campaignJSON, len(stats))
	for i, st := range stats {
		out[i] = campaignJSON{
			Charity:     st.Charity,
			Index:       st.Index,
			Title:       st.Title,
			Description: st.Description,
			Goal:        give.FormatAmount(st.GoalAmount),
			Raised:      give.FormatAmount(st.TotalDonated),
			Deadline:    st.Deadline,
			DaysLeft:    st.DaysLeft,
			Progress:    st.Progress,
			Active:      st.EffectivelyActive,
		}
	}
	return out
}

func donationDTOs(donations []*model.Donation) []donationJSON {
	out := make([]donationJSON, len(donations))
	for i, d := range donations {
		out[i] = donationJSON{
			Donor:     d.Donor,
			Amount:    give.FormatAmount(d.Amount),
			Timestamp: d.Timestamp,
			Message:   d.Message,
		}
	}
	return out
}
