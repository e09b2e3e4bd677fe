package dhan

import (
	"context"
	"fmt"
	"time"

	"TrendPulse/internal/domain/models"
	domainrepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/ratelimit"
	xhttp "TrendPulse/pkg/http"
	xutil "TrendPulse/pkg/util"
)

const dateLayout = "2006-01-02 15:04:05"

// Client fetches intraday bars from a Dhan-compatible charts API.
type Client struct {
	baseURL     string
	accessToken string
	clientID    string
	maxRPS      float64
	http        *xhttp.Client
	limiter     *ratelimit.Limiter
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithMaxRPS caps outgoing request rate.
func WithMaxRPS(rps float64) Option {
	return func(c *Client) {
		c.maxRPS = rps
	}
}

// New creates a market-data client for the charts API.
func New(baseURL, accessToken, clientID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		clientID:    clientID,
		maxRPS:      5,
		http:        xhttp.NewClient(),
		limiter:     ratelimit.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type intradayRequest struct {
	SecurityID      string `json:"securityId"`
	ExchangeSegment string `json:"exchangeSegment"`
	Instrument      string `json:"instrument"`
	Interval        int    `json:"interval"`
	FromDate        string `json:"fromDate"`
	ToDate          string `json:"toDate"`
}

// intradayResponse carries OHLCV as parallel arrays indexed by bar.
type intradayResponse struct {
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
	Timestamp []int64   `json:"timestamp"`
}

// Fetch pulls bars for the instrument between from and to. The response
// uses parallel arrays; a missing or length-mismatched array marks the
// whole payload malformed.
func (c *Client) Fetch(ctx context.Context, inst models.Instrument, tf domainrepo.Timeframe, from, to time.Time) ([]models.Candle, error) {
	if err := c.waitForSlot(ctx); err != nil {
		return nil, models.NewProviderError("throttle", err)
	}

	from, to = xutil.AlignToMinutes(from, to, tf.Minutes())
	req := intradayRequest{
		SecurityID:      inst.SecurityID,
		ExchangeSegment: inst.ExchangeSegment,
		Instrument:      inst.InstrumentType,
		Interval:        tf.Minutes(),
		FromDate:        from.Format(dateLayout),
		ToDate:          to.Format(dateLayout),
	}

	var resp intradayResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/charts/intraday",
		Headers: map[string]string{
			"access-token": c.accessToken,
			"client-id":    c.clientID,
		},
		Body: req,
	}, &resp)
	if err != nil {
		return nil, models.NewProviderError("intraday", err)
	}

	return c.toCandles(inst, tf, &resp)
}

func (c *Client) toCandles(inst models.Instrument, tf domainrepo.Timeframe, resp *intradayResponse) ([]models.Candle, error) {
	if resp.Timestamp == nil || resp.Open == nil || resp.High == nil || resp.Low == nil || resp.Close == nil || resp.Volume == nil {
		return nil, models.NewProviderError("intraday", fmt.Errorf("payload missing expected array fields"))
	}
	n := len(resp.Timestamp)
	if len(resp.Open) != n || len(resp.High) != n || len(resp.Low) != n || len(resp.Close) != n || len(resp.Volume) != n {
		return nil, models.NewProviderError("intraday", fmt.Errorf("payload array length mismatch"))
	}

	candles := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		candles = append(candles, models.Candle{
			InstrumentID: inst.ID,
			Timeframe:    string(tf),
			Timestamp:    resp.Timestamp[i],
			Open:         resp.Open[i],
			High:         resp.High[i],
			Low:          resp.Low[i],
			Close:        resp.Close[i],
			Volume:       resp.Volume[i],
		})
	}
	return candles, nil
}

func (c *Client) waitForSlot(ctx context.Context) error {
	for {
		if c.limiter.Allow("provider", c.maxRPS, c.maxRPS) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
