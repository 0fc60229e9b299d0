package ldlink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ldexplorer/config"
	"ldexplorer/logger"
	"ldexplorer/models"
)

const proxyTable = "RS_Number\tCoord\tAlleles\tMAF\tDistance\tDprime\tR2\tCorrelated_Alleles\tFORGEdb\tRegulomeDB\tFunction\n" +
	"rs429358\tchr19:44908684\t(T/C)\t0.1536\t0\t1.0\t1.0\tT=T,C=C\t7\t5\tmissense\n" +
	"rs769449\tchr19:44906745\t(G/A)\t0.0716\t-1939\t0.9\t0.85\tT=G,C=A\t6\t4\tintron\n" +
	"rs1\tchr19:1\t(G/A)\t0.2\t100\t0.95\t0.3\tT=G,C=A\t.\t.\t.\n" +
	"rs2\tchr19:2\t(G/A)\tNA\t100\t0.95\t0.9\tT=G,C=A\t.\t.\t.\n" +
	"rs3\tchr19:3\t(G/A)\t0.2\t100\n"

func TestParseProxyR2(t *testing.T) {
	got, err := ParseProxy([]byte(proxyTable), config.StatisticR2, 0.8)
	if err != nil {
		t.Fatalf("ParseProxy: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 variants, got %d: %+v", len(got), got)
	}
	lv := got[1]
	if lv.RSID != "rs769449" || lv.Alleles != "(G/A)" || lv.Distance != -1939 || lv.R2 != 0.85 || lv.DPrime != 0.9 {
		t.Errorf("unexpected variant: %+v", lv)
	}
	if lv.CorrelatedAlleles != "T=G,C=A" || lv.Function != "intron" || lv.FORGEdb != "6" {
		t.Errorf("unexpected annotation columns: %+v", lv)
	}
}

func TestParseProxyDPrime(t *testing.T) {
	got, err := ParseProxy([]byte(proxyTable), config.StatisticDPrime, 0.92)
	if err != nil {
		t.Fatalf("ParseProxy: %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, lv := range got {
		ids = append(ids, lv.RSID)
	}
	if strings.Join(ids, ",") != "rs429358,rs1" {
		t.Fatalf("unexpected variants: %v", ids)
	}
}

func TestParseProxyHeaderOnly(t *testing.T) {
	got, err := ParseProxy([]byte("RS_Number\tCoord\n"), config.StatisticR2, 0.8)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v err=%v", got, err)
	}
}

func TestProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/LDlinkRest/ldproxy" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{"var": "rs429358", "pop": "CEU", "r2_d": "r2", "window": "500000", "genome_build": "grch38", "token": "tok"}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("param %s = %q, want %q", k, q.Get(k), v)
			}
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(proxyTable))
	}))
	defer srv.Close()

	c, err := NewClient(config.LDLinkConfig{BaseURL: srv.URL + "/LDlinkRest/", Token: "tok", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.Proxy(context.Background(), models.LDQuery{
		Variant:     "rs429358",
		Population:  "CEU",
		GenomeBuild: "grch38",
		Window:      500000,
		Statistic:   config.StatisticR2,
		Threshold:   0.8,
	})
	if err != nil {
		t.Fatalf("Proxy: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(got))
	}
}

func TestProxyServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "rs0 is not in 1000G reference panel."}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.LDLinkConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Proxy(context.Background(), models.LDQuery{Variant: "rs0", Population: "CEU", Statistic: "r2"})
	if err == nil || !strings.Contains(err.Error(), "not in 1000G") {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestProxyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(config.LDLinkConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Proxy(context.Background(), models.LDQuery{Variant: "rs1"}); err == nil {
		t.Fatalf("expected error for 503")
	}
}

func TestProxyCancelledWhileThrottled(t *testing.T) {
	c, err := NewClient(config.LDLinkConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	// consume the only token
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Proxy(ctx, models.LDQuery{Variant: "rs1"}); err == nil {
		t.Fatalf("expected limiter error")
	}
}

func TestNewClientWarnsWithoutToken(t *testing.T) {
	cases := []struct {
		name  string
		token string
		warns int64
	}{
		{"empty token", "", 1},
		{"token set", "tok", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before, _ := logger.Counts("ldlink_client")
			if _, err := NewClient(config.LDLinkConfig{BaseURL: "https://ldlink.example/LDlinkRest", Token: tc.token}); err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			after, _ := logger.Counts("ldlink_client")
			if after-before != tc.warns {
				t.Fatalf("expected %d warnings, got %d", tc.warns, after-before)
			}
		})
	}
}
