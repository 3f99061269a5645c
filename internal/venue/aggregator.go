package venue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/observability"
)

// Default aggregator settings.
const (
	DefaultAggregatorTimeout = 15 * time.Second
	DefaultAggregatorRPS     = 5
	maxErrorBody             = 512
)

// AggregatorOptions configures a REST aggregator adapter.
type AggregatorOptions struct {
	Options
	BaseURL    string       // default is the public API of the venue
	HTTPClient *http.Client // default has DefaultAggregatorTimeout
	RateLimit  float64      // requests per second, default DefaultAggregatorRPS, < 0 disables
	Burst      int
}

// aggregatorProtocol is the venue-specific wire format.
type aggregatorProtocol interface {
	name() string
	// quote fetches a quote and returns the raw response needed by swapTransaction.
	quote(ctx context.Context, c *aggregatorClient, params domain.SwapParams) (*domain.SwapQuote, json.RawMessage, error)
	// swapTransaction requests a serialized transaction for a raw quote.
	swapTransaction(ctx context.Context, c *aggregatorClient, params domain.SwapParams, raw json.RawMessage) (string, error)
}

// aggregatorClient is the HTTP layer shared by aggregator venues.
type aggregatorClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	venue   string
}

func newAggregatorClient(opts AggregatorOptions, venue, defaultURL string) *aggregatorClient {
	base := opts.BaseURL
	if base == "" {
		base = defaultURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultAggregatorTimeout}
	}
	rps := opts.RateLimit
	if rps == 0 {
		rps = DefaultAggregatorRPS
	}
	var limiter *rate.Limiter
	if rps > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &aggregatorClient{baseURL: base, http: client, limiter: limiter, venue: venue}
}

func swapQuery(params domain.SwapParams) url.Values {
	q := url.Values{}
	q.Set("inputMint", params.InputMint)
	q.Set("outputMint", params.OutputMint)
	q.Set("amount", strconv.FormatUint(params.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(params.SlippageBps))
	return q
}

func (c *aggregatorClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, "get")
}

func (c *aggregatorClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "post")
}

func (c *aggregatorClient) do(req *http.Request, op string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordVenueLatency(c.venue, op, time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Aggregator is an Adapter backed by a swap aggregator REST API.
type Aggregator struct {
	proto  aggregatorProtocol
	client *aggregatorClient
	submitter
}

func newAggregator(proto aggregatorProtocol, opts AggregatorOptions, defaultURL string) *Aggregator {
	return &Aggregator{
		proto:     proto,
		client:    newAggregatorClient(opts, proto.name(), defaultURL),
		submitter: newSubmitter(opts.Options, proto.name()),
	}
}

// Name implements Adapter.
func (a *Aggregator) Name() string { return a.proto.name() }

// Quote implements Adapter.
func (a *Aggregator) Quote(ctx context.Context, params domain.SwapParams) (*domain.SwapQuote, error) {
	q, _, err := a.proto.quote(ctx, a.client, params)
	if err != nil {
		return nil, &QuoteError{Venue: a.Name(), Err: err}
	}
	return q, nil
}

// BuildSwapTransaction implements Adapter. A fresh quote is fetched so the
// venue builds against current routing.
func (a *Aggregator) BuildSwapTransaction(ctx context.Context, params domain.SwapParams, _ *domain.SwapQuote) (*solanago.Transaction, error) {
	_, raw, err := a.proto.quote(ctx, a.client, params)
	if err != nil {
		return nil, &BuildError{Venue: a.Name(), Err: fmt.Errorf("requote: %w", err)}
	}

	encoded, err := a.proto.swapTransaction(ctx, a.client, params, raw)
	if err != nil {
		return nil, &BuildError{Venue: a.Name(), Err: err}
	}

	txBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &BuildError{Venue: a.Name(), Err: fmt.Errorf("decode transaction: %w", err)}
	}
	tx, err := solanago.TransactionFromBytes(txBytes)
	if err != nil {
		return nil, &BuildError{Venue: a.Name(), Err: fmt.Errorf("deserialize transaction: %w", err)}
	}
	return tx, nil
}

// ExecuteSwap implements Adapter.
func (a *Aggregator) ExecuteSwap(ctx context.Context, params domain.SwapParams, signer solanago.PrivateKey) (*domain.SwapResult, error) {
	return a.execute(ctx, a, params, signer)
}

func parseAmount(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

func parseImpact(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
