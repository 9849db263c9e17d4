package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tradewages/common/cache"
	"tradewages/common/errors"
	"tradewages/common/telemetry"
	"tradewages/services/ingestion/internal/config"
	"tradewages/services/ingestion/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("tradewages/ingestion/api")

// SalarySource fetches one batch of wage series.
type SalarySource interface {
	FetchSeries(ctx context.Context, seriesIDs []string) (*models.SeriesResponse, error)
	Live() bool
}

type seriesRequest struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
	Catalog         bool     `json:"catalog"`
	Calculations    bool     `json:"calculations"`
	AnnualAverage   bool     `json:"annualaverage"`
}

// blsClient talks to the BLS v2 timeseries endpoint. It rotates through its
// registration keys when one hits the daily threshold. Calls are expected to
// be sequential.
type blsClient struct {
	client     *http.Client
	logger     *zap.Logger
	config     *config.Config
	cache      cache.Cache
	keys       []string
	currentKey int
}

func newBLSClient(logger *zap.Logger, config *config.Config, c cache.Cache) *blsClient {
	return &blsClient{
		client: &http.Client{
			Timeout: config.BLSAPITimeout,
		},
		logger: logger,
		config: config,
		cache:  c,
		keys:   config.BLSAPIKeys,
	}
}

func (c *blsClient) Live() bool {
	return true
}

// cacheKey names a batch by its year range and a digest of its ids, so the
// same batch requested again within the TTL is not refetched.
func (c *blsClient) cacheKey(seriesIDs []string) (string, error) {
	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.Join(seriesIDs, ",")))
	return cache.Key("bls", "series",
		strconv.Itoa(c.config.BLSStartYear),
		strconv.Itoa(c.config.BLSEndYear),
		digest.String())
}

func (c *blsClient) FetchSeries(ctx context.Context, seriesIDs []string) (*models.SeriesResponse, error) {
	ctx, span := tracer.Start(ctx, "FetchSeries")
	defer span.End()
	span.SetAttributes(telemetry.Int("bls.series.count", len(seriesIDs)))

	cacheKey, err := c.cacheKey(seriesIDs)
	if err != nil {
		return nil, errors.Internal("building cache key", err)
	}
	var cached models.SeriesResponse
	err = c.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		span.SetAttributes(telemetry.String("cache.result", "hit"))
		c.logger.Debug("cache hit for series batch", zap.Int("series", len(seriesIDs)))
		return &cached, nil
	} else if err != cache.ErrNotFound {
		span.SetAttributes(telemetry.String("cache.result", "error"))
		span.RecordError(err)
		c.logger.Warn("cache error for series batch", zap.Error(err))
	} else {
		span.SetAttributes(telemetry.String("cache.result", "miss"))
	}

	attempts := len(c.keys)
	if attempts == 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.post(ctx, seriesIDs, c.activeKey())
		if err != nil {
			telemetry.Fail(span, err)
			return nil, err
		}

		if resp.Succeeded() {
			if err := c.cache.Set(ctx, cacheKey, resp, c.config.CacheTTL); err != nil {
				c.logger.Warn("failed to cache series batch", zap.Error(err))
			}
			return resp, nil
		}

		if !thresholdReached(resp) {
			err := errors.BatchFetchFailed(fmt.Sprintf("status %s: %s", resp.Status, resp.MessageText()), nil)
			telemetry.Fail(span, err)
			return resp, err
		}

		c.logger.Warn("registration key exhausted, rotating",
			zap.Int("key", c.currentKey+1),
			zap.Int("keys", len(c.keys)))
		c.rotateKey()
	}

	err = errors.RateLimit("all registration keys have reached the daily threshold", nil)
	telemetry.Fail(span, err)
	return nil, errors.BatchFetchFailed("series batch", err)
}

func (c *blsClient) activeKey() string {
	if len(c.keys) == 0 {
		return ""
	}
	return c.keys[c.currentKey]
}

func (c *blsClient) rotateKey() {
	if len(c.keys) > 0 {
		c.currentKey = (c.currentKey + 1) % len(c.keys)
	}
}

func thresholdReached(resp *models.SeriesResponse) bool {
	if resp.Status != "REQUEST_NOT_PROCESSED" {
		return false
	}
	for _, m := range resp.Message {
		if strings.Contains(strings.ToLower(m), "daily threshold") {
			return true
		}
	}
	return false
}

func (c *blsClient) post(ctx context.Context, seriesIDs []string, key string) (*models.SeriesResponse, error) {
	body, err := json.Marshal(seriesRequest{
		SeriesID:        seriesIDs,
		StartYear:       strconv.Itoa(c.config.BLSStartYear),
		EndYear:         strconv.Itoa(c.config.BLSEndYear),
		RegistrationKey: key,
	})
	if err != nil {
		return nil, errors.Internal("encoding series request", err)
	}

	url := c.config.BLSAPIBaseURL + "/timeseries/data/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("failed to execute request", zap.Error(err))
		return nil, errors.BatchFetchFailed("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("unexpected status code", zap.Int("status_code", resp.StatusCode))
		return nil, errors.BatchFetchFailed(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	var out models.SeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Error("failed to decode response", zap.Error(err))
		return nil, errors.BatchFetchFailed("decoding response", err)
	}

	c.logger.Debug("fetched series batch",
		zap.Int("requested", len(seriesIDs)),
		zap.Int("returned", len(out.Results.Series)),
		zap.String("status", out.Status))
	return &out, nil
}
