package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/guregu/null.v3"

	"ldexplorer/config"
	"ldexplorer/internal/metrics"
	"ldexplorer/internal/pipeline"
	"ldexplorer/internal/server"
	"ldexplorer/logger"
	"ldexplorer/models"
	"ldexplorer/processor"
	"ldexplorer/reader/gwas"
	"ldexplorer/reader/ldlink"
	"ldexplorer/writer"
)

// nullFloatFlag is a float flag that stays null unless set.
type nullFloatFlag struct {
	null.Float
}

func (f *nullFloatFlag) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'g', -1, 64)
}

func (f *nullFloatFlag) Set(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	f.Float = null.FloatFrom(v)
	return nil
}

type options struct {
	configPath  string
	phenotype   string
	population  string
	minOdds     nullFloatFlag
	maxOdds     nullFloatFlag
	withTrait   bool
	traitFilter string
	output      string
	format      string
	serve       bool
	statistic   string
	threshold   nullFloatFlag
	workers     int
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (default config/config.yml)")
	fs.StringVar(&opts.phenotype, "phenotype", "", "Phenotype or disease name to explore")
	fs.StringVar(&opts.population, "population", "", "1000 Genomes population code, e.g. CEU or EUR")
	fs.Var(&opts.minOdds, "min-odds", "Keep risk SNPs whose odds ratio is at least this value")
	fs.Var(&opts.maxOdds, "max-odds", "Keep risk SNPs whose odds ratio is at most this value")
	fs.BoolVar(&opts.withTrait, "with-trait", false, "Drop trait records without a trait name")
	fs.StringVar(&opts.traitFilter, "trait-filter", "", "Keep only traits containing this keyword")
	fs.StringVar(&opts.output, "output", "", "Write the report to this file instead of stdout")
	fs.StringVar(&opts.format, "format", "", "Report format: json, csv or parquet")
	fs.BoolVar(&opts.serve, "serve", false, "Run the HTTP API instead of a single exploration")
	fs.StringVar(&opts.statistic, "statistic", "", "LD statistic: r2 or d")
	fs.Var(&opts.threshold, "threshold", "Minimum LD statistic for a linked SNP")
	fs.IntVar(&opts.workers, "workers", 0, "Concurrent LD lookups")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// apply layers command line values over cfg.
func (o *options) apply(cfg *config.Config) error {
	if o.output != "" {
		cfg.Output.Path = o.output
	}
	if o.format != "" {
		cfg.Output.Format = strings.ToLower(o.format)
	}
	if o.statistic != "" {
		cfg.LDLink.Statistic = strings.ToLower(o.statistic)
	}
	if o.threshold.Valid {
		cfg.LDLink.Threshold = o.threshold.Float64
	}
	if o.workers > 0 {
		cfg.Pipeline.MaxWorkers = o.workers
	}
	return cfg.Validate()
}

func (o *options) filter() models.FilterOptions {
	return models.FilterOptions{
		MinOdds:      o.minOdds.Float,
		MaxOdds:      o.maxOdds.Float,
		WithTrait:    o.withTrait,
		TraitKeyword: o.traitFilter,
	}
}

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, opts); err != nil {
		stop()
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error during execution: %v\n", err)
	os.Exit(1)
}

func run(ctx context.Context, log *logger.Log, opts *options) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}
	metrics.Init()

	log.WithFields(logger.Fields{
		"service": cfg.LDExplorer.Name,
		"version": cfg.LDExplorer.Version,
		"env":     config.AppEnvironment(),
	}).Info("starting ldexplorer")

	explorer, err := newExplorer(cfg)
	if err != nil {
		return err
	}

	if opts.serve {
		if cfg.Metrics.ReportInterval > 0 {
			logger.StartReport(ctx, log, cfg.Metrics.ReportInterval)
		}
		return server.NewServer(cfg, explorer, log).Run(ctx)
	}

	if strings.TrimSpace(opts.phenotype) == "" || strings.TrimSpace(opts.population) == "" {
		return errors.New("both -phenotype and -population are required")
	}

	res, err := explorer.Run(ctx, opts.phenotype, opts.population)
	if err != nil {
		return err
	}
	report := processor.Filter(res.Report, opts.filter())

	out, err := writer.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create report writer: %w", err)
	}
	location, err := out.Write(ctx, report, writer.Meta{
		RunID:      res.RunID,
		Phenotype:  res.Match.MatchedTrait,
		Population: res.Population,
	})
	if err != nil {
		return err
	}

	log.WithComponent("main").WithFields(logger.Fields{
		"run_id":        res.RunID,
		"matched_trait": res.Match.MatchedTrait,
		"efo_id":        res.Match.EFOID,
		"entries":       len(report),
		"location":      location,
	}).Info("exploration completed")
	return nil
}

func newExplorer(cfg *config.Config) (*pipeline.Explorer, error) {
	gwasClient, err := gwas.NewClient(cfg.GWAS)
	if err != nil {
		return nil, err
	}
	ldClient, err := ldlink.NewClient(cfg.LDLink)
	if err != nil {
		return nil, err
	}
	return pipeline.NewExplorer(gwasClient, gwasClient, ldClient, pipeline.OptionsFromConfig(cfg)), nil
}
