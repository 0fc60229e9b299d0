// Package gwas is a client for the GWAS Catalog REST API.
package gwas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ldexplorer/config"
	"ldexplorer/logger"
	"ldexplorer/models"
	"ldexplorer/reader"
)

const halJSON = "application/hal+json, application/json"

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	pageSize   int
	log        *logger.Log
}

type traitPage struct {
	Embedded struct {
		EFOTraits []models.OntologyTrait `json:"efoTraits"`
	} `json:"_embedded"`
}

type associationPage struct {
	Embedded struct {
		Associations []models.Association `json:"associations"`
	} `json:"_embedded"`
}

// NewClient builds a client from the gwas config section.
func NewClient(cfg config.GWASConfig) (*Client, error) {
	base, err := parseBase(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10000
	}

	log := logger.GetLogger()
	log.WithComponent("gwas_client").WithFields(logger.Fields{
		"base_url":           base.String(),
		"max_idle_conns":     cfg.ConnectionPool.MaxIdleConns,
		"max_conns_per_host": cfg.ConnectionPool.MaxConnsPerHost,
		"timeout":            cfg.Timeout,
	}).Info("gwas client initialized")

	return &Client{
		baseURL:    base,
		httpClient: reader.NewHTTPClient(cfg.ConnectionPool, cfg.Timeout, reader.DefaultUserAgent),
		pageSize:   pageSize,
		log:        log,
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("gwas: invalid base url %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gwas: base url %q must be absolute", raw)
	}
	return base, nil
}

// SearchTraits returns the ontology traits matching term.
func (c *Client) SearchTraits(ctx context.Context, term string) ([]models.OntologyTrait, error) {
	params := url.Values{}
	params.Set("trait", term)

	var page traitPage
	if err := c.getJSON(ctx, "efoTraits/search/findByEfoTrait?"+params.Encode(), &page); err != nil {
		return nil, fmt.Errorf("gwas: search traits %q: %w", term, err)
	}
	return page.Embedded.EFOTraits, nil
}

// AssociationsByTrait returns all associations annotated with efoID.
func (c *Client) AssociationsByTrait(ctx context.Context, efoID string) ([]models.Association, error) {
	path := fmt.Sprintf("efoTraits/%s/associations?size=%s", url.PathEscape(efoID), strconv.Itoa(c.pageSize))

	var page associationPage
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("gwas: associations for %s: %w", efoID, err)
	}
	return page.Embedded.Associations, nil
}

// AssociationsBySNP returns every association reported for rsID, whatever
// the trait.
func (c *Client) AssociationsBySNP(ctx context.Context, rsID string) ([]models.Association, error) {
	params := url.Values{}
	params.Set("rsId", rsID)

	var page associationPage
	if err := c.getJSON(ctx, "associations/search/findByRsId?"+params.Encode(), &page); err != nil {
		return nil, fmt.Errorf("gwas: associations for %s: %w", rsID, err)
	}
	return page.Embedded.Associations, nil
}

// TraitsByLink follows an association's efoTraits link and returns the trait
// names. Relative links resolve against the base url.
func (c *Client) TraitsByLink(ctx context.Context, href string) ([]string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("gwas: invalid trait link %q: %w", href, err)
	}

	var page traitPage
	if err := c.get(ctx, c.baseURL.ResolveReference(ref).String(), &page); err != nil {
		return nil, fmt.Errorf("gwas: traits by link: %w", err)
	}

	names := make([]string, 0, len(page.Embedded.EFOTraits))
	for _, tr := range page.Embedded.EFOTraits {
		names = append(names, tr.Trait)
	}
	return names, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.get(ctx, c.baseURL.String()+path, out)
}

func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	start := time.Now()
	body, err := reader.Get(ctx, c.httpClient, rawURL, halJSON)
	if err != nil {
		return err
	}
	logger.LogPerformanceEntry(c.log.WithComponent("gwas_client"), "gwas_client", "api_request", time.Since(start), logger.Fields{
		"url": rawURL,
	})

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
