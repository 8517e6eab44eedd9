package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"givechain/internal/give"
	"givechain/internal/model"
)

// charityPlatformABI is the deployed contract's call surface. Field names
// and units (uint256 wei amounts, uint256 unix-second timestamps) must match
// the deployment exactly.
const charityPlatformABI = `[
  {"type":"function","stateMutability":"view","name":"getCharities","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","stateMutability":"view","name":"charities","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"metadataUrl","type":"string"},{"name":"isActive","type":"bool"}]},
  {"type":"function","stateMutability":"view","name":"getCharityRequests","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"requester","type":"address"},{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"metadataUrl","type":"string"},{"name":"approved","type":"bool"}]}]},
  {"type":"function","stateMutability":"view","name":"getCampaigns","inputs":[{"name":"charity","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"goalAmount","type":"uint256"},{"name":"totalDonated","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"isActive","type":"bool"}]}]},
  {"type":"function","stateMutability":"view","name":"getDonationsToCampaign","inputs":[{"name":"charity","type":"address"},{"name":"campaignIndex","type":"uint256"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"donor","type":"address"},{"name":"amount","type":"uint256"},{"name":"timestamp","type":"uint256"},{"name":"message","type":"string"}]}]},
  {"type":"function","stateMutability":"view","name":"minimumDonation","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","stateMutability":"view","name":"paused","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","stateMutability":"view","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","stateMutability":"nonpayable","name":"requestCharityRegistration","inputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"metadataUrl","type":"string"}],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"approveCharity","inputs":[{"name":"requestId","type":"uint256"}],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"createCampaign","inputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"goalAmount","type":"uint256"},{"name":"deadline","type":"uint256"}],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"toggleCampaignStatus","inputs":[{"name":"campaignIndex","type":"uint256"}],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"withdrawCampaignFunds","inputs":[{"name":"campaignIndex","type":"uint256"}],"outputs":[]},
  {"type":"function","stateMutability":"payable","name":"donate","inputs":[{"name":"charity","type":"address"},{"name":"campaignIndex","type":"uint256"},{"name":"message","type":"string"}],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"setMinimumDonation","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"pauseContract","inputs":[],"outputs":[]},
  {"type":"function","stateMutability":"nonpayable","name":"unpauseContract","inputs":[],"outputs":[]}
]`

// TxSender submits a prepared transaction on behalf of an account. Signing
// and gas handling belong to external wallet tooling, not to this gateway;
// the gateway only builds calldata.
type TxSender interface {
	SendTransaction(ctx context.Context, from, to common.Address, value *big.Int, data []byte) error
}

const defaultCallTimeout = 15 * time.Second

// EthGateway talks to the deployed charity contract over JSON-RPC. Reads go
// through eth_call with bounded retry on transport failures; writes are
// packed into calldata and handed to the TxSender exactly once — a rejected
// write is never retried here, since blind resubmission risks duplicate
// ledger effects.
type EthGateway struct {
	client      *ethclient.Client
	abi         abi.ABI
	contract    common.Address
	sender      TxSender
	callTimeout time.Duration
	maxTries    uint
	logger      give.Logger
}

// NewEthGateway dials the JSON-RPC endpoint and binds the contract address.
// sender may be nil, in which case every write fails with ErrLedgerRejected.
func NewEthGateway(ctx context.Context, rpcURL, contractAddress string, sender TxSender, callTimeout time.Duration, maxTries uint, logger give.Logger) (*EthGateway, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", contractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(charityPlatformABI))
	if err != nil {
		return nil, fmt.Errorf("parsing contract ABI: %w", err)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", give.ErrGatewayUnreachable, rpcURL, err)
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if maxTries == 0 {
		maxTries = 3
	}
	return &EthGateway{
		client:      client,
		abi:         parsed,
		contract:    common.HexToAddress(contractAddress),
		sender:      sender,
		callTimeout: callTimeout,
		maxTries:    maxTries,
		logger:      logger,
	}, nil
}

// Close releases the underlying RPC connection.
func (g *EthGateway) Close() {
	g.client.Close()
}

func (g *EthGateway) ListCharityAddresses(ctx context.Context) ([]string, error) {
	out, err := g.call(ctx, "getCharities")
	if err != nil {
		return nil, err
	}
	addrs, err := convertOutput[[]common.Address](out, "getCharities")
	if err != nil {
		return nil, err
	}
	result := make([]string, len(addrs))
	for i, a := range addrs {
		result[i] = a.Hex()
	}
	return result, nil
}

func (g *EthGateway) GetCharity(ctx context.Context, address string) (*model.Charity, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, "charities", addr)
	if err != nil {
		return nil, err
	}
	// The public mapping getter returns the struct fields as separate values.
	if len(out) != 4 {
		return nil, fmt.Errorf("%w: charities returned %d values", give.ErrMalformedResponse, len(out))
	}
	name, ok0 := out[0].(string)
	description, ok1 := out[1].(string)
	metadataURL, ok2 := out[2].(string)
	isActive, ok3 := out[3].(bool)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: unexpected field types from charities", give.ErrMalformedResponse)
	}
	return &model.Charity{
		Address:     addr.Hex(),
		Name:        name,
		Description: description,
		MetadataURL: metadataURL,
		IsActive:    isActive,
	}, nil
}

func (g *EthGateway) ListCharityRequests(ctx context.Context) ([]*model.CharityRequest, error) {
	out, err := g.call(ctx, "getCharityRequests")
	if err != nil {
		return nil, err
	}
	type rawRequest struct {
		Requester   common.Address
		Name        string
		Description string
		MetadataUrl string
		Approved    bool
	}
	raw, err := convertOutput[[]rawRequest](out, "getCharityRequests")
	if err != nil {
		return nil, err
	}
	result := make([]*model.CharityRequest, len(raw))
	for i, r := range raw {
		result[i] = &model.CharityRequest{
			ID:          i,
			Requester:   r.Requester.Hex(),
			Name:        r.Name,
			Description: r.Description,
			MetadataURL: r.MetadataUrl,
			Approved:    r.Approved,
		}
	}
	return result, nil
}

func (g *EthGateway) ListCampaigns(ctx context.Context, charity string) ([]*model.Campaign, error) {
	addr, err := parseAddress(charity)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, "getCampaigns", addr)
	if err != nil {
		return nil, err
	}
	type rawCampaign struct {
		Title        string
		Description  string
		GoalAmount   *big.Int
		TotalDonated *big.Int
		Deadline     *big.Int
		IsActive     bool
	}
	raw, err := convertOutput[[]rawCampaign](out, "getCampaigns")
	if err != nil {
		return nil, err
	}
	result := make([]*model.Campaign, len(raw))
	for i, c := range raw {
		if c.GoalAmount == nil || c.TotalDonated == nil || c.Deadline == nil {
			return nil, fmt.Errorf("%w: campaign %d of %s has missing numeric fields", give.ErrMalformedResponse, i, charity)
		}
		result[i] = &model.Campaign{
			Charity:      addr.Hex(),
			Index:        i,
			Title:        c.Title,
			Description:  c.Description,
			GoalAmount:   c.GoalAmount,
			TotalDonated: c.TotalDonated,
			Deadline:     c.Deadline.Int64(),
			IsActive:     c.IsActive,
		}
	}
	return result, nil
}

func (g *EthGateway) ListDonations(ctx context.Context, charity string, campaignIndex int) ([]*model.Donation, error) {
	addr, err := parseAddress(charity)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, "getDonationsToCampaign", addr, big.NewInt(int64(campaignIndex)))
	if err != nil {
		return nil, err
	}
	type rawDonation struct {
		Donor     common.Address
		Amount    *big.Int
		Timestamp *big.Int
		Message   string
	}
	raw, err := convertOutput[[]rawDonation](out, "getDonationsToCampaign")
	if err != nil {
		return nil, err
	}
	result := make([]*model.Donation, len(raw))
	for i, d := range raw {
		if d.Amount == nil || d.Timestamp == nil {
			return nil, fmt.Errorf("%w: donation %d of %s#%d has missing numeric fields", give.ErrMalformedResponse, i, charity, campaignIndex)
		}
		result[i] = &model.Donation{
			Donor:     d.Donor.Hex(),
			Amount:    d.Amount,
			Timestamp: d.Timestamp.Int64(),
			Message:   d.Message,
		}
	}
	return result, nil
}

func (g *EthGateway) GetPlatformConfig(ctx context.Context) (*model.PlatformConfig, error) {
	minOut, err := g.call(ctx, "minimumDonation")
	if err != nil {
		return nil, err
	}
	minDonation, err := convertOutput[*big.Int](minOut, "minimumDonation")
	if err != nil {
		return nil, err
	}
	pausedOut, err := g.call(ctx, "paused")
	if err != nil {
		return nil, err
	}
	paused, err := convertOutput[bool](pausedOut, "paused")
	if err != nil {
		return nil, err
	}
	return &model.PlatformConfig{MinimumDonation: minDonation, Paused: paused}, nil
}

func (g *EthGateway) GetOwner(ctx context.Context) (string, error) {
	out, err := g.call(ctx, "owner")
	if err != nil {
		return "", err
	}
	owner, err := convertOutput[common.Address](out, "owner")
	if err != nil {
		return "", err
	}
	return owner.Hex(), nil
}

func (g *EthGateway) SubmitCharityRequest(ctx context.Context, from, name, description, metadataURL string) error {
	return g.send(ctx, from, nil, "requestCharityRegistration", name, description, metadataURL)
}

func (g *EthGateway) ApproveCharityRequest(ctx context.Context, from string, requestID int) error {
	return g.send(ctx, from, nil, "approveCharity", big.NewInt(int64(requestID)))
}

func (g *EthGateway) CreateCampaign(ctx context.Context, from, title, description string, goal *big.Int, deadline int64) error {
	return g.send(ctx, from, nil, "createCampaign", title, description, goal, big.NewInt(deadline))
}

func (g *EthGateway) ToggleCampaignActive(ctx context.Context, from string, campaignIndex int) error {
	return g.send(ctx, from, nil, "toggleCampaignStatus", big.NewInt(int64(campaignIndex)))
}

func (g *EthGateway) WithdrawCampaignFunds(ctx context.Context, from string, campaignIndex int) error {
	return g.send(ctx, from, nil, "withdrawCampaignFunds", big.NewInt(int64(campaignIndex)))
}

func (g *EthGateway) Donate(ctx context.Context, from, charity string, campaignIndex int, amount *big.Int, message string) error {
	addr, err := parseAddress(charity)
	if err != nil {
		return err
	}
	return g.send(ctx, from, amount, "donate", addr, big.NewInt(int64(campaignIndex)), message)
}

func (g *EthGateway) SetMinimumDonation(ctx context.Context, from string, amount *big.Int) error {
	return g.send(ctx, from, nil, "setMinimumDonation", amount)
}

func (g *EthGateway) SetPaused(ctx context.Context, from string, paused bool) error {
	method := "pauseContract"
	if !paused {
		method = "unpauseContract"
	}
	return g.send(ctx, from, nil, method)
}

// call packs and executes a read-only contract call, retrying transient
// transport failures with exponential backoff up to maxTries.
func (g *EthGateway) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &g.contract, Data: data}

	operation := func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
		raw, err := g.client.CallContract(callCtx, msg, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			g.logger.Debug("contract call failed", "method", method, "error", err)
			return nil, err
		}
		return raw, nil
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(g.maxTries))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", give.ErrGatewayUnreachable, method, err)
	}

	out, err := g.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unpacking %s: %v", give.ErrMalformedResponse, method, err)
	}
	return out, nil
}

// send packs calldata for a state-changing method and hands it to the
// transaction sender. Writes are submitted exactly once.
func (g *EthGateway) send(ctx context.Context, from string, value *big.Int, method string, args ...any) error {
	if g.sender == nil {
		return fmt.Errorf("%w: no transaction sender configured", give.ErrLedgerRejected)
	}
	sender, err := parseAddress(from)
	if err != nil {
		return err
	}
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("packing %s: %w", method, err)
	}
	if err := g.sender.SendTransaction(ctx, sender, g.contract, value, data); err != nil {
		return fmt.Errorf("%w: %s: %v", give.ErrLedgerRejected, method, err)
	}
	return nil
}

// convertOutput maps a single ABI output value onto the expected Go type,
// converting reflection-built tuple types field by field. A shape mismatch
// surfaces as ErrMalformedResponse instead of a panic.
func convertOutput[T any](out []any, method string) (v T, err error) {
	if len(out) != 1 {
		return v, fmt.Errorf("%w: %s returned %d values", give.ErrMalformedResponse, method, len(out))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", give.ErrMalformedResponse, method, r)
		}
	}()
	converted, ok := abi.ConvertType(out[0], new(T)).(*T)
	if !ok {
		return v, fmt.Errorf("%w: %s: unexpected output type %T", give.ErrMalformedResponse, method, out[0])
	}
	return *converted, nil
}

func parseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address: %q", address)
	}
	return common.HexToAddress(address), nil
}
