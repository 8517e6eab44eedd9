package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"givechain/internal/config"
	"givechain/internal/give"
	"givechain/internal/server"
	"givechain/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*server.Server, *testutil.ScriptedGateway) {
	t.Helper()
	clock := testutil.FixedClock()
	gateway := testutil.NewScriptedGateway(testutil.SeededLedger(t, clock))
	agg := give.NewAggregator(gateway, give.NewNopLogger(), clock, testutil.NewStubIDGenerator(), 4)
	srv := server.New(agg, gateway, config.ServerConfig{}, config.AggregationConfig{}, give.NewNopLogger())
	return srv, gateway
}

func get(t *testing.T, srv *server.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/stats?donors=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var got struct {
		Scope           string `json:"scope"`
		Charities       int    `json:"charities"`
		Campaigns       int    `json:"campaigns"`
		ActiveCampaigns int    `json:"active_campaigns"`
		TotalDonated    string `json:"total_donated"`
		DistinctDonors  int    `json:"distinct_donors"`
		Complete        bool   `json:"complete"`
	}
	decode(t, rec, &got)

	if got.Scope != "platform" {
		t.Errorf("scope = %q, want %q", got.Scope, "platform")
	}
	if got.Charities != 2 || got.Campaigns != 3 || got.ActiveCampaigns != 3 {
		t.Errorf("counts = %d/%d/%d, want 2/3/3", got.Charities, got.Campaigns, got.ActiveCampaigns)
	}
	if got.TotalDonated != "4" {
		t.Errorf("total_donated = %q, want %q", got.TotalDonated, "4")
	}
	if got.DistinctDonors != 2 {
		t.Errorf("distinct_donors = %d, want 2", got.DistinctDonors)
	}
	if !got.Complete {
		t.Errorf("complete = false, want true")
	}
}

func TestGetStats_CharityScope(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/stats?charity="+testutil.CharityTwo)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var got struct {
		Scope        string `json:"scope"`
		Campaigns    int    `json:"campaigns"`
		TotalDonated string `json:"total_donated"`
	}
	decode(t, rec, &got)

	if got.Scope != testutil.CharityTwo {
		t.Errorf("scope = %q, want %q", got.Scope, testutil.CharityTwo)
	}
	if got.Campaigns != 1 {
		t.Errorf("campaigns = %d, want 1", got.Campaigns)
	}
	if got.TotalDonated != "0.5" {
		t.Errorf("total_donated = %q, want %q", got.TotalDonated, "0.5")
	}
}

func TestGetStats_GatewayDown(t *testing.T) {
	t.Parallel()

	srv, gateway := newTestServer(t)
	gateway.FailAddresses(errors.New("rpc timeout"))

	rec := get(t, srv, "/api/stats")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestGetCampaigns(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/campaigns")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var got struct {
		Complete  bool `json:"complete"`
		Campaigns []struct {
			Title    string  `json:"title"`
			Raised   string  `json:"raised"`
			Goal     string  `json:"goal"`
			Progress float64 `json:"progress"`
			Active   bool    `json:"active"`
		} `json:"campaigns"`
	}
	decode(t, rec, &got)

	if !got.Complete {
		t.Errorf("complete = false, want true")
	}
	if len(got.Campaigns) != 3 {
		t.Fatalf("len(campaigns) = %d, want 3", len(got.Campaigns))
	}
	first := got.Campaigns[0]
	if first.Title != "Clean Water Wells" || first.Raised != "3.5" || first.Goal != "10" {
		t.Errorf("campaigns[0] = %+v, want Clean Water Wells 3.5/10", first)
	}
	if first.Progress != 35 {
		t.Errorf("progress = %v, want 35", first.Progress)
	}
	if !first.Active {
		t.Errorf("active = false, want true")
	}
}

func TestGetCampaigns_PartialFailure(t *testing.T) {
	t.Parallel()

	srv, gateway := newTestServer(t)
	gateway.FailCampaignsFor(testutil.CharityTwo, errors.New("rpc timeout"))

	rec := get(t, srv, "/api/campaigns")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with partial payload", rec.Code)
	}

	var got struct {
		Complete  bool     `json:"complete"`
		Failed    []string `json:"failed"`
		Campaigns []any    `json:"campaigns"`
	}
	decode(t, rec, &got)

	if got.Complete {
		t.Errorf("complete = true, want false")
	}
	if len(got.Failed) != 1 || got.Failed[0] != testutil.CharityTwo {
		t.Errorf("failed = %v, want [%s]", got.Failed, testutil.CharityTwo)
	}
	if len(got.Campaigns) != 2 {
		t.Errorf("len(campaigns) = %d, want 2", len(got.Campaigns))
	}
}

func TestGetCharities(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/charities")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var got struct {
		Complete  bool `json:"complete"`
		Charities []struct {
			Address string `json:"address"`
			Name    string `json:"name"`
			Active  bool   `json:"active"`
		} `json:"charities"`
	}
	decode(t, rec, &got)

	if !got.Complete {
		t.Errorf("complete = false, want true")
	}
	if len(got.Charities) != 2 {
		t.Fatalf("len(charities) = %d, want 2", len(got.Charities))
	}
	if got.Charities[0].Name != "Water For All" || !got.Charities[0].Active {
		t.Errorf("charities[0] = %+v, want active Water For All", got.Charities[0])
	}
}

func TestGetRequests_PendingFilter(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/requests")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var all struct {
		Requests []any `json:"requests"`
	}
	decode(t, rec, &all)
	if len(all.Requests) != 2 {
		t.Errorf("len(requests) = %d, want 2", len(all.Requests))
	}

	// Every seeded request is approved, so the pending view is empty.
	rec = get(t, srv, "/api/requests?pending=true")
	var pending struct {
		Requests []any `json:"requests"`
	}
	decode(t, rec, &pending)
	if len(pending.Requests) != 0 {
		t.Errorf("len(pending) = %d, want 0", len(pending.Requests))
	}
}

func TestGetPlatformConfig(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := get(t, srv, "/api/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var got struct {
		MinimumDonation string `json:"minimum_donation"`
		Paused          bool   `json:"paused"`
	}
	decode(t, rec, &got)

	if got.MinimumDonation != "0.01" {
		t.Errorf("minimum_donation = %q, want %q", got.MinimumDonation, "0.01")
	}
	if got.Paused {
		t.Errorf("paused = true, want false")
	}
}
