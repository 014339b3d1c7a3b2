package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/services"
)

const app = "cv-rank"

type options struct {
	configFile string
	cvDir      string
	jdDir      string
	output     string
	format     string
}

var (
	opts = options{}
	v    = viper.New()

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "Rank a directory of CV PDFs against one job description PDF",
		Long: `cv-rank summarizes every CV with Gemini, embeds the summaries together with the
job description and writes the candidates sorted by similarity score.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "optional config file (yaml, json or toml)")
	flags.StringVar(&opts.cvDir, "cv-dir", "dataset/cvs", "directory with candidate CV PDFs")
	flags.StringVar(&opts.jdDir, "jd-dir", "dataset/jd", "directory with exactly one job description PDF")
	flags.StringVarP(&opts.output, "output", "o", "output/output.csv", "file to write the ranking to")
	flags.StringVarP(&opts.format, "format", "f", "csv", "output format: csv, json or html")
	flags.Float64("min-score", 70, "minimum similarity score (0-100) to keep a candidate")
	flags.Int("max-results", 10, "maximum number of candidates to keep, 0 for all")
	flags.BoolP("debug", "d", false, "verbose/debug output")
	flags.BoolP("json", "j", false, "json format for logging")

	v.BindPFlag("min_score", flags.Lookup("min-score"))
	v.BindPFlag("max_results", flags.Lookup("max-results"))
	v.BindPFlag("log_debug", flags.Lookup("debug"))
	v.BindPFlag("log_json", flags.Lookup("json"))
}

func run(ctx context.Context) error {
	format := strings.ToLower(opts.format)
	if !isSupportedFormat(format) {
		return fmt.Errorf("unsupported format %q, expected csv, json or html", opts.format)
	}

	cfg, err := config.LoadWith(v, opts.configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	pipeline, err := services.NewPipeline(ctx, cfg, nil, log)
	if err != nil {
		log.Error("initializing pipeline", zap.Error(err))
		return err
	}

	jds, err := loadDocuments(pipeline.Uploads, opts.jdDir, models.RoleJobDescription, cfg.Storage.AllowedExtensions)
	if err != nil {
		log.Error("loading job description", zap.String("dir", opts.jdDir), zap.Error(err))
		return err
	}
	cvs, err := loadDocuments(pipeline.Uploads, opts.cvDir, models.RoleCandidate, cfg.Storage.AllowedExtensions)
	if err != nil {
		log.Error("loading CVs", zap.String("dir", opts.cvDir), zap.Error(err))
		return err
	}

	log.Info("starting the ranking",
		zap.Int("cvs", len(cvs)),
		zap.Float64("min_score", cfg.Ranking.MinScore),
		zap.Int("max_results", cfg.Ranking.MaxResults),
	)

	result, err := pipeline.Ranker.Rank(ctx, services.RankRequest{
		JobDescriptions: jds,
		Candidates:      cvs,
		MinScore:        cfg.Ranking.MinScore,
		MaxResults:      cfg.Ranking.MaxResults,
	})
	if err != nil {
		log.Error("ranking candidates", zap.Error(err))
		return err
	}

	if err := writeOutput(opts.output, format, result.View); err != nil {
		log.Error("writing output", zap.String("output", opts.output), zap.Error(err))
		return err
	}

	log.Info("ranking written",
		zap.String("output", opts.output),
		zap.Int("ranked", result.View.Len()),
		zap.Int("total", result.TotalCandidates),
		zap.Int("degraded", result.Degraded),
	)
	return nil
}

func isSupportedFormat(format string) bool {
	switch format {
	case "csv", "json", "html":
		return true
	}
	return false
}

func writeOutput(path, format string, table *services.RankingTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case "json":
		err = services.WriteJSON(f, services.ToRecords(table))
	case "html":
		err = services.RenderTableHTML(f, "Candidate Ranking", table)
	default:
		err = services.WriteCSV(f, services.ToRecords(table))
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}
