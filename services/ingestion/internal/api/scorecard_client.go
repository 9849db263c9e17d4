package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"tradewages/common/cache"
	"tradewages/common/errors"
	"tradewages/common/telemetry"
	"tradewages/services/ingestion/internal/config"
	"tradewages/services/ingestion/internal/models"

	"go.uber.org/zap"
)

const scorecardFields = "id,school.name,school.city,school.state,school.zip,school.school_url,school.accreditor,latest.programs.cip_4_digit"

// ProgramSource lists the schools of the configured state together with
// their embedded programs.
type ProgramSource interface {
	FetchSchools(ctx context.Context) (*SchoolListing, error)
	Live() bool
}

// SchoolListing is one walk over the school pages. PageErrors holds the
// pages that failed while at least one other page was read.
type SchoolListing struct {
	Schools    []models.SourceSchool
	PageErrors []error
}

type scorecardClient struct {
	client *http.Client
	logger *zap.Logger
	config *config.Config
	cache  cache.Cache
}

func newScorecardClient(logger *zap.Logger, config *config.Config, c cache.Cache) *scorecardClient {
	return &scorecardClient{
		client: &http.Client{
			Timeout: config.ScorecardTimeout,
		},
		logger: logger,
		config: config,
		cache:  c,
	}
}

func (c *scorecardClient) Live() bool {
	return true
}

// FetchSchools walks every page. A failed page is skipped and reported in
// PageErrors; the call only fails when no page could be read.
func (c *scorecardClient) FetchSchools(ctx context.Context) (*SchoolListing, error) {
	ctx, span := tracer.Start(ctx, "FetchSchools")
	defer span.End()
	span.SetAttributes(telemetry.String("scorecard.state", c.config.State))

	perPage := c.config.ScorecardPerPage
	if perPage <= 0 {
		perPage = 100
	}

	var (
		listing    SchoolListing
		pagesRead  int
		totalPages = 1
		lastErr    error
	)
	for page := 0; page < totalPages; page++ {
		result, err := c.fetchPage(ctx, page, perPage)
		if err != nil {
			lastErr = err
			listing.PageErrors = append(listing.PageErrors,
				errors.UpstreamUnavailable(fmt.Sprintf("scorecard page %d", page), err))
			c.logger.Error("failed to fetch scorecard page", zap.Int("page", page), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		pagesRead++
		if result.Metadata.Total > 0 {
			totalPages = (result.Metadata.Total + perPage - 1) / perPage
		}
		listing.Schools = append(listing.Schools, result.Results...)
	}

	span.SetAttributes(
		telemetry.Int("scorecard.pages", pagesRead),
		telemetry.Int("scorecard.failed_pages", len(listing.PageErrors)),
		telemetry.Int("scorecard.schools", len(listing.Schools)),
	)
	if pagesRead == 0 && lastErr != nil {
		telemetry.Fail(span, lastErr)
		return nil, errors.UpstreamUnavailable("no scorecard page could be read", lastErr)
	}

	c.logger.Info("fetched schools",
		zap.String("state", c.config.State),
		zap.Int("schools", len(listing.Schools)),
		zap.Int("pages", pagesRead),
		zap.Int("failed_pages", len(listing.PageErrors)))
	return &listing, nil
}

func (c *scorecardClient) fetchPage(ctx context.Context, page, perPage int) (*models.ScorecardPage, error) {
	cacheKey, err := cache.Key("scorecard", c.config.State, strconv.Itoa(perPage), strconv.Itoa(page))
	if err != nil {
		return nil, errors.InvalidInput("building cache key", err)
	}
	var cached models.ScorecardPage
	err = c.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		c.logger.Debug("cache hit for scorecard page", zap.Int("page", page))
		return &cached, nil
	} else if err != cache.ErrNotFound {
		c.logger.Warn("cache error for scorecard page", zap.Error(err))
	}

	params := url.Values{}
	params.Set("api_key", c.config.ScorecardAPIKey)
	params.Set("school.state", c.config.State)
	params.Set("fields", scorecardFields)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	endpoint := c.config.ScorecardAPIBaseURL + "/schools.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Internal("creating request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Internal("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.RateLimit("scorecard rate limit", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Internal(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	var result models.ScorecardPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Internal("decoding response", err)
	}

	if err := c.cache.Set(ctx, cacheKey, result, c.config.CacheTTL); err != nil {
		c.logger.Warn("failed to cache scorecard page", zap.Int("page", page), zap.Error(err))
	}
	return &result, nil
}
