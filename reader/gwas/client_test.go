package gwas

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ldexplorer/config"
	"ldexplorer/reader"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.GWASConfig{BaseURL: srv.URL + "/gwas/rest/api", Timeout: 5 * time.Second, PageSize: 50})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestSearchTraits(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gwas/rest/api/efoTraits/search/findByEfoTrait" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("trait"); got != "alzheimer's disease" {
			t.Errorf("unexpected trait param %q", got)
		}
		if ua := r.Header.Get("User-Agent"); ua != reader.DefaultUserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(`{"_embedded":{"efoTraits":[{"trait":"Alzheimer's disease","shortForm":"MONDO_0004975"}]}}`))
	}))

	traits, err := c.SearchTraits(context.Background(), "alzheimer's disease")
	if err != nil {
		t.Fatalf("SearchTraits: %v", err)
	}
	if len(traits) != 1 || traits[0].ShortForm != "MONDO_0004975" {
		t.Fatalf("unexpected traits: %+v", traits)
	}
}

func TestSearchTraitsEmptyEmbedded(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_links":{}}`))
	}))

	traits, err := c.SearchTraits(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("SearchTraits: %v", err)
	}
	if len(traits) != 0 {
		t.Fatalf("expected no traits, got %+v", traits)
	}
}

func TestAssociationsByTrait(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gwas/rest/api/efoTraits/MONDO_0004975/associations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("size"); got != "50" {
			t.Errorf("unexpected size %q", got)
		}
		w.Write([]byte(`{"_embedded":{"associations":[
			{"pvalue":1e-9,"orPerCopyNum":1.5,"riskFrequency":"0.3","loci":[{"strongestRiskAlleles":[{"riskAlleleName":"rs429358-C"}]}]}
		]}}`))
	}))

	assocs, err := c.AssociationsByTrait(context.Background(), "MONDO_0004975")
	if err != nil {
		t.Fatalf("AssociationsByTrait: %v", err)
	}
	if len(assocs) != 1 || assocs[0].OddsRatio.Float64 != 1.5 {
		t.Fatalf("unexpected associations: %+v", assocs)
	}
	if pairs := assocs[0].RiskAlleles(); len(pairs) != 1 || pairs[0].SNPID != "rs429358" {
		t.Fatalf("unexpected risk alleles: %+v", pairs)
	}
}

func TestAssociationsBySNPAndTraitLink(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/gwas/rest/api/associations/search/findByRsId", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("rsId"); got != "rs7412" {
			t.Errorf("unexpected rsId %q", got)
		}
		w.Write([]byte(`{"_embedded":{"associations":[{"pvalue":2e-8,"betaNum":0.12,"betaUnit":"unit","betaDirection":"increase",
			"loci":[{"strongestRiskAlleles":[{"riskAlleleName":"rs7412-T"}]}],
			"_links":{"efoTraits":{"href":"` + srvURL + `/gwas/rest/api/associations/42/efoTraits"}}}]}}`))
	})
	mux.HandleFunc("/gwas/rest/api/associations/42/efoTraits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_embedded":{"efoTraits":[{"trait":"LDL cholesterol"},{"trait":"total cholesterol"}]}}`))
	})
	c, srv := newTestClient(t, mux)
	srvURL = srv.URL

	assocs, err := c.AssociationsBySNP(context.Background(), "rs7412")
	if err != nil {
		t.Fatalf("AssociationsBySNP: %v", err)
	}
	if len(assocs) != 1 || assocs[0].BetaDirection.String != "increase" {
		t.Fatalf("unexpected associations: %+v", assocs)
	}

	names, err := c.TraitsByLink(context.Background(), assocs[0].Links.EFOTraits.Href)
	if err != nil {
		t.Fatalf("TraitsByLink: %v", err)
	}
	if len(names) != 2 || names[0] != "LDL cholesterol" {
		t.Fatalf("unexpected trait names: %v", names)
	}

	names, err = c.TraitsByLink(context.Background(), "associations/42/efoTraits")
	if err != nil || len(names) != 2 {
		t.Fatalf("relative link: names=%v err=%v", names, err)
	}
}

func TestStatusError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.AssociationsBySNP(context.Background(), "rs1")
	var statusErr *reader.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewClientRejectsRelativeBase(t *testing.T) {
	if _, err := NewClient(config.GWASConfig{BaseURL: "gwas/rest"}); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}
