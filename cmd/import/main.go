// Command import runs one batch through the compliance pipeline from a
// chosen source: a flat file, the social-ad lead API, or the marketplace API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"leadgate/internal/archive"
	"leadgate/internal/audit"
	"leadgate/internal/dedup"
	"leadgate/internal/ingest"
	"leadgate/internal/lead"
	"leadgate/internal/lead/protect"
	"leadgate/internal/pipeline"
	"leadgate/internal/platform/config"
	"leadgate/internal/platform/logger"
	"leadgate/internal/platform/metrics"
	"leadgate/internal/platform/postgres"
	platformredis "leadgate/internal/platform/redis"
	"leadgate/internal/store"
)

func main() {
	source := flag.String("source", "", "lead source: flat-file | social-ad | marketplace-api")
	file := flag.String("file", "", "flat-file path (flat-file source)")
	date := flag.String("date", "", "submission date YYYY-MM-DD (social-ad source)")
	batchID := flag.String("batch-id", "", "marketplace batch ID (marketplace-api source)")
	flag.Parse()

	log := logger.New()
	if err := run(context.Background(), log, *source, *file, *date, *batchID); err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, source, file, date, batchID string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	records, err := fetch(ctx, cfg, lead.Source(source), file, date, batchID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Warn("no leads fetched", "source", source)
		return nil
	}

	protector, err := protect.New(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	primary := store.NewPostgresStore(db)
	if err := primary.EnsureSchema(ctx); err != nil {
		return err
	}

	auditStore, err := audit.NewFileStore(cfg.AuditLogPath)
	if err != nil {
		return err
	}
	defer auditStore.Close()

	var trailOpts []audit.Option
	if len(cfg.KafkaBrokers) > 0 {
		mirror, err := audit.NewKafkaMirror(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		defer mirror.Close(ctx)
		trailOpts = append(trailOpts, audit.WithMirror(mirror))
	}
	trail := audit.NewTrail(auditStore, cfg.Actor, log, trailOpts...)

	var arch archive.Archive = archive.Noop{}
	if cfg.ArchiveDir != "" {
		fsArchive, err := archive.NewFSArchive(cfg.ArchiveDir)
		if err != nil {
			return err
		}
		arch = fsArchive
	}

	var index dedup.Index = dedup.NewInMemoryIndex()
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		index = dedup.NewRedisIndex(redisClient, cfg.DedupTTL)
	}

	pipe, err := pipeline.New(protector, primary, arch, index, trail, metrics.New(), log,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithCallTimeout(cfg.CallTimeout),
	)
	if err != nil {
		return err
	}

	summary, err := pipe.Run(ctx, records)
	if err != nil {
		return err
	}

	log.Info("import complete",
		"total", summary.Total,
		"stored", summary.Stored,
		"rejected", summary.Rejected,
		"failed", summary.Failed,
	)
	fmt.Printf("processed %d/%d leads\n", summary.Processed(), summary.Total)
	if summary.Failed > 0 {
		return fmt.Errorf("%d leads failed persistence", summary.Failed)
	}
	return nil
}

func fetch(ctx context.Context, cfg config.Config, source lead.Source, file, date, batchID string) ([]lead.Record, error) {
	switch source {
	case lead.SourceFlatFile:
		if file == "" {
			return nil, fmt.Errorf("-file is required for the flat-file source")
		}
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file, err)
		}
		defer f.Close()
		return ingest.NewCSVReader().Read(f)
	case lead.SourceSocialAd:
		if date == "" {
			return nil, fmt.Errorf("-date is required for the social-ad source")
		}
		client := ingest.NewSocialAdsClient(cfg.SocialAdsToken, cfg.SocialAdsPageID, cfg.CallTimeout)
		return client.FetchByDate(ctx, date)
	case lead.SourceMarketplace:
		if batchID == "" {
			return nil, fmt.Errorf("-batch-id is required for the marketplace-api source")
		}
		client := ingest.NewMarketplaceClient(cfg.MarketplaceURL, cfg.MarketplaceAPIKey, cfg.CallTimeout)
		return client.FetchBatch(ctx, batchID)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}
