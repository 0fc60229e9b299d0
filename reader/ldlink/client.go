// Package ldlink queries the LDlink LDproxy endpoint.
package ldlink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ldexplorer/config"
	"ldexplorer/logger"
	"ldexplorer/models"
	"ldexplorer/reader"
)

// proxyColumns is the number of columns of an LDproxy row.
const proxyColumns = 11

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewClient builds a client from the ldlink config section. A zero
// requests_per_second leaves requests unthrottled.
func NewClient(cfg config.LDLinkConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ldlink: invalid base url %q", cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	log := logger.GetLogger()
	log.WithComponent("ldlink_client").WithFields(logger.Fields{
		"base_url":            cfg.BaseURL,
		"requests_per_second": cfg.RequestsPerSecond,
		"token_set":           cfg.Token != "",
		"timeout":             cfg.Timeout,
	}).Info("ldlink client initialized")
	if cfg.Token == "" {
		log.WithComponent("ldlink_client").Warn("ldlink.token is empty, LDproxy rejects unauthenticated requests; set LDLINK_TOKEN")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: reader.NewHTTPClient(cfg.ConnectionPool, cfg.Timeout, reader.DefaultUserAgent),
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
	}, nil
}

// Proxy returns the variants in LD with q.Variant whose chosen statistic
// reaches q.Threshold.
func (c *Client) Proxy(ctx context.Context, q models.LDQuery) ([]models.LinkedVariant, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ldlink: proxy %s: %w", q.Variant, err)
	}

	params := url.Values{}
	params.Set("var", q.Variant)
	params.Set("pop", q.Population)
	params.Set("r2_d", q.Statistic)
	params.Set("window", strconv.Itoa(q.Window))
	params.Set("genome_build", q.GenomeBuild)
	if c.token != "" {
		params.Set("token", c.token)
	}

	start := time.Now()
	body, err := reader.Get(ctx, c.httpClient, c.baseURL+"/ldproxy?"+params.Encode(), "text/plain")
	if err != nil {
		return nil, fmt.Errorf("ldlink: proxy %s: %w", q.Variant, err)
	}
	logger.LogPerformanceEntry(c.log.WithComponent("ldlink_client"), "ldlink_client", "ldproxy", time.Since(start), logger.Fields{
		"variant":    q.Variant,
		"population": q.Population,
	})

	if msg, ok := serviceError(body); ok {
		return nil, fmt.Errorf("ldlink: proxy %s: %s", q.Variant, msg)
	}

	variants, err := ParseProxy(body, q.Statistic, q.Threshold)
	if err != nil {
		return nil, fmt.Errorf("ldlink: proxy %s: %w", q.Variant, err)
	}
	return variants, nil
}

// serviceError detects the JSON error document LDlink sends in place of the
// table, usually with a 200 status.
func serviceError(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var doc struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return "", false
	}
	if doc.Error == "" {
		return "", false
	}
	return doc.Error, true
}

// ParseProxy reads the tab-separated LDproxy table. The first line is a
// header. Short rows, rows with unparsable numbers and rows below threshold
// on statistic ("r2" or "d") are skipped.
func ParseProxy(body []byte, statistic string, threshold float64) ([]models.LinkedVariant, error) {
	var out []models.LinkedVariant

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	header := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if header {
			header = false
			continue
		}
		if line == "" {
			continue
		}

		lv, ok := parseRow(strings.Split(line, "\t"))
		if !ok {
			continue
		}

		value := lv.R2
		if statistic == config.StatisticDPrime {
			value = lv.DPrime
		}
		if value < threshold {
			continue
		}
		out = append(out, lv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy table: %w", err)
	}
	return out, nil
}

func parseRow(fields []string) (models.LinkedVariant, bool) {
	if len(fields) < proxyColumns {
		return models.LinkedVariant{}, false
	}
	maf, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return models.LinkedVariant{}, false
	}
	distance, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return models.LinkedVariant{}, false
	}
	dprime, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	if err != nil {
		return models.LinkedVariant{}, false
	}
	r2, err := strconv.ParseFloat(strings.TrimSpace(fields[6]), 64)
	if err != nil {
		return models.LinkedVariant{}, false
	}

	return models.LinkedVariant{
		RSID:              fields[0],
		Coord:             fields[1],
		Alleles:           fields[2],
		MAF:               maf,
		Distance:          distance,
		DPrime:            dprime,
		R2:                r2,
		CorrelatedAlleles: fields[7],
		FORGEdb:           fields[8],
		RegulomeDB:        fields[9],
		Function:          fields[10],
	}, true
}
