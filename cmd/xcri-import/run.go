package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xcri-import/internal/concurrency"
	"xcri-import/internal/config"
	"xcri-import/internal/domain"
	"xcri-import/internal/export"
	"xcri-import/internal/feed"
	"xcri-import/internal/httpx"
	"xcri-import/internal/importer"
	"xcri-import/internal/index"
	"xcri-import/internal/index/solr"
	"xcri-import/internal/index/sqlite"
	"xcri-import/internal/logging"
	"xcri-import/internal/sftpclient"
	"xcri-import/internal/xcri"
)

func run(cmd *cobra.Command, cfg config.Config, opts options, feeds []string) error {
	if opts.upload && opts.out == "" {
		return errors.New("--upload requires --out")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	start := time.Now()
	defer func() {
		logger.Info("job finished", "feeds", len(feeds), "duration", time.Since(start))
	}()

	idx, closeIndex, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	sftpCfg := sftpConfig(cfg)
	imp := &importer.Importer{
		Index: idx,
		Opener: feed.Opener{
			Retry: httpx.DefaultRetryConfig(),
			SFTP:  sftpCfg,
			Stdin: cmd.InOrStdin(),
		},
		Normalizer: xcri.Normalizer{
			IdentifierBase:   cfg.IdentifierBase,
			VenueBase:        cfg.VenueBase,
			ExcludedSubjects: cfg.ExcludedSubjects,
		},
		Logger: logger,
	}

	results, errs := concurrency.ProcessParallel(ctx, feeds, concurrency.ParallelOptions{MaxWorkers: cfg.Workers},
		func(ctx context.Context, _ int, location string) (feedResult, error) {
			rep, err := imp.RunFeed(ctx, location)
			if err != nil {
				logger.Error("import failed", "feed", location, "err", err)
			}
			return feedResult{Report: rep, Err: err}, err
		})

	reports := make([]importer.Report, 0, len(results))
	for i, res := range results {
		if res.Feed == "" {
			// not started: canceled before its turn
			res = feedResult{Report: importer.Report{Feed: feeds[i]}, Err: context.Canceled}
			results[i] = res
		}
		if res.Err == nil {
			reports = append(reports, res.Report)
		}
	}

	printSummary(cmd.OutOrStdout(), results, time.Now())
	if counter, ok := idx.(interface {
		Count(context.Context) (int, error)
	}); ok {
		if n, err := counter.Count(ctx); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "index now holds %d presentations\n", n)
		}
	}

	if opts.rejects != "" {
		if err := writeRejects(cmd.OutOrStdout(), opts.rejects, reports); err != nil {
			errs = append(errs, err)
		}
	}

	if opts.out != "" {
		if err := writeExport(ctx, logger, opts.out, opts.upload, sftpCfg, reports); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// feedResult keeps a feed's fatal error next to its report.
type feedResult struct {
	importer.Report
	Err error
}

func openIndex(ctx context.Context, cfg config.Config) (index.Indexer, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.IndexBackend)) {
	case "", "solr":
		return solr.New(cfg.SolrURL, cfg.SolrCore), func() {}, nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q (want solr or sqlite)", cfg.IndexBackend)
	}
}

func sftpConfig(cfg config.Config) sftpclient.Config {
	return sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		KnownHostsKey:         cfg.SFTPHostKey,
	}
}

func writeRejects(stdout io.Writer, path string, reports []importer.Report) error {
	feeds := make([]export.FeedRejections, 0, len(reports))
	for _, rep := range reports {
		feeds = append(feeds, export.FeedRejections{Feed: rep.Feed, Rejected: rep.Rejected})
	}

	if path == "-" {
		return export.WriteRejectionsCSV(stdout, feeds)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rejects: create %s: %w", path, err)
	}
	if err := export.WriteRejectionsCSV(f, feeds); err != nil {
		f.Close()
		return fmt.Errorf("rejects: write %s: %w", path, err)
	}
	return f.Close()
}

func writeExport(ctx context.Context, logger *slog.Logger, outPath string, upload bool, sftpCfg sftpclient.Config, reports []importer.Report) error {
	var records []domain.Record
	for _, rep := range reports {
		records = append(records, rep.Records...)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir %s: %w", dir, err)
		}
	}
	if err := export.WriteSolrXML(outPath, records); err != nil {
		return err
	}
	logger.Info("wrote export", "path", outPath, "records", len(records))

	if !upload {
		return nil
	}

	upCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	remoteName := filepath.Base(outPath)
	if err := sftpclient.UploadFile(upCtx, sftpCfg, outPath, remoteName); err != nil {
		return err
	}
	logger.Info("uploaded export", "host", sftpCfg.Host, "dir", sftpCfg.RemoteDir, "file", remoteName)
	return nil
}
