package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dexarb/internal/crypto"
	"github.com/alanyoungcy/dexarb/internal/domain"
)

// Client is the REST client for the Binance spot API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.RequestSigner
}

// NewClient creates a new Binance REST client.
//
// baseURL is the API root, e.g. "https://api.binance.com".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetAPIKey configures the client for signed account endpoints. Public
// market-data endpoints work without it.
func (c *Client) SetAPIKey(key, secret string) {
	c.signer = &crypto.RequestSigner{Key: key, Secret: secret}
}

// FetchTicker returns the current best bid/ask and last trade price for a
// symbol in "BASE/QUOTE" form.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (domain.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", marketSymbol(symbol))

	var book BookTicker
	if err := c.get(ctx, "/api/v3/ticker/bookTicker", params, &book); err != nil {
		return domain.Ticker{}, fmt.Errorf("binance: book ticker %s: %w", symbol, err)
	}

	var last SymbolPrice
	if err := c.get(ctx, "/api/v3/ticker/price", params, &last); err != nil {
		return domain.Ticker{}, fmt.Errorf("binance: last price %s: %w", symbol, err)
	}

	ticker := domain.Ticker{Symbol: symbol, At: time.Now()}
	var err error
	if ticker.Bid, err = decimal.NewFromString(book.BidPrice); err != nil {
		return domain.Ticker{}, fmt.Errorf("binance: parse bid %q: %w", book.BidPrice, err)
	}
	if ticker.Ask, err = decimal.NewFromString(book.AskPrice); err != nil {
		return domain.Ticker{}, fmt.Errorf("binance: parse ask %q: %w", book.AskPrice, err)
	}
	if ticker.Last, err = decimal.NewFromString(last.Price); err != nil {
		return domain.Ticker{}, fmt.Errorf("binance: parse last %q: %w", last.Price, err)
	}

	return ticker, nil
}

// LoadMarkets returns the set of symbols currently listed for trading,
// keyed in "BASE/QUOTE" form.
func (c *Client) LoadMarkets(ctx context.Context) (domain.MarketSet, error) {
	var info exchangeInfo
	if err := c.get(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", err)
	}

	markets := make(domain.MarketSet, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		markets[s.BaseAsset+"/"+s.QuoteAsset] = struct{}{}
	}

	return markets, nil
}

// ServerTime returns the exchange clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var st serverTime
	if err := c.get(ctx, "/api/v3/time", nil, &st); err != nil {
		return time.Time{}, fmt.Errorf("binance: server time: %w", err)
	}
	return time.UnixMilli(st.ServerTime), nil
}

// AccountBalances returns the spot balances of the authenticated account,
// including zero balances. Requires SetAPIKey.
func (c *Client) AccountBalances(ctx context.Context) ([]Balance, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("binance: account balances: %w", domain.ErrUnauthorized)
	}

	var acct accountInfo
	if err := c.signedGet(ctx, "/api/v3/account", nil, &acct); err != nil {
		return nil, fmt.Errorf("binance: account: %w", err)
	}

	return acct.Balances, nil
}

var _ domain.PriceOracle = (*Client)(nil)

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// marketSymbol converts "ETH/USDT" to Binance's "ETHUSDT" form.
func marketSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// get issues an unsigned GET against a public endpoint and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	return c.do(ctx, fullURL, nil, out)
}

// signedGet issues a GET with a signed query string and the API key header.
func (c *Client) signedGet(ctx context.Context, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path + "?" + c.signer.SignQuery(params)
	return c.do(ctx, fullURL, c.signer.Header(), out)
}

func (c *Client) do(ctx context.Context, fullURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp, body); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors. Binance
// reports Retry-After on 429 and bans repeat offenders with 418.
func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	_ = json.Unmarshal(body, &apiErr)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s (code %d)", domain.ErrNotFound, apiErr.Msg, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (code %d)", domain.ErrUnauthorized, apiErr.Msg, apiErr.Code)
	case http.StatusTooManyRequests, http.StatusTeapot:
		return fmt.Errorf("%w: retry after %ss: %s (code %d)",
			domain.ErrRateLimited, resp.Header.Get("Retry-After"), apiErr.Msg, apiErr.Code)
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: HTTP %d: %s", domain.ErrConnectivity, resp.StatusCode, apiErr.Msg)
		}
		return fmt.Errorf("HTTP %d: %s (code %d)", resp.StatusCode, apiErr.Msg, apiErr.Code)
	}
}
