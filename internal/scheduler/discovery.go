package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/openfoundry/outreach/internal/discovery"
	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/sources/targets"
	"github.com/openfoundry/outreach/internal/store/jsonfile"
)

// DiscoveryRunner handles periodic contact discovery across all targets
type DiscoveryRunner struct {
	loader         *targets.Loader
	mapper         *targets.Mapper
	scraper        *discovery.Scraper
	registry       *index.Registry
	store          *jsonfile.Store
	logger         logger.Logger
	interval       time.Duration
	scrapeCooldown time.Duration
	stopCh         chan struct{}
	manualTrigger  chan struct{}
}

// NewDiscoveryRunner creates a new discovery runner
func NewDiscoveryRunner(
	targetsFile string,
	scraper *discovery.Scraper,
	registry *index.Registry,
	store *jsonfile.Store,
	log logger.Logger,
	interval time.Duration,
	scrapeCooldown time.Duration,
	manualTrigger chan struct{},
) *DiscoveryRunner {
	return &DiscoveryRunner{
		loader:         targets.NewLoader(targetsFile),
		mapper:         targets.NewMapper(),
		scraper:        scraper,
		registry:       registry,
		store:          store,
		logger:         log,
		interval:       interval,
		scrapeCooldown: scrapeCooldown,
		stopCh:         make(chan struct{}),
		manualTrigger:  manualTrigger,
	}
}

// Start begins the periodic discovery process
func (dr *DiscoveryRunner) Start(ctx context.Context) error {
	// Run immediately on start
	if err := dr.Run(ctx); err != nil {
		return fmt.Errorf("initial discovery failed: %w", err)
	}

	ticker := time.NewTicker(dr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := dr.Run(ctx); err != nil {
					dr.logger.Error("discovery run failed",
						logger.Error(err))
				}
			case <-dr.manualTrigger:
				dr.logger.Info("manual discovery triggered")
				if err := dr.Run(ctx); err != nil {
					dr.logger.Error("discovery run failed",
						logger.Error(err))
				}
			case <-dr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the runner
func (dr *DiscoveryRunner) Stop() {
	close(dr.stopCh)
}

// Run loads the targets file, scrapes targets that are due, merges the
// results into the registry and persists. Per-target scrape failures
// are logged and skipped.
func (dr *DiscoveryRunner) Run(ctx context.Context) error {
	config, err := dr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}

	list, err := dr.mapper.MapTargets(config)
	if err != nil {
		return fmt.Errorf("failed to map targets: %w", err)
	}

	dr.logger.Info("discovery started",
		logger.Int("targets", len(list)))

	snap := dr.registry.Snapshot()
	now := time.Now().UTC()
	scraped, added := 0, 0

	for _, tg := range list {
		dr.registry.UpsertOrganization(tg.Organization)

		if org, ok := snap.Organizations[tg.Organization.Name]; ok &&
			!org.LastScrapedAt.IsZero() &&
			now.Sub(org.LastScrapedAt) < dr.scrapeCooldown {
			dr.logger.Debug("target recently scraped, skipping",
				logger.String("org", tg.Organization.Name))
			continue
		}

		contacts, err := dr.scraper.Discover(ctx, tg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			dr.logger.Warn("target discovery failed",
				logger.String("org", tg.Organization.Name),
				logger.Error(err))
			continue
		}

		for _, c := range contacts {
			if dr.registry.UpsertContact(c) {
				added++
			}
		}
		dr.registry.MarkScraped(tg.Organization.Name, now)
		scraped++
	}

	if err := dr.store.Save(dr.registry.Export()); err != nil {
		return fmt.Errorf("failed to persist after discovery: %w", err)
	}

	dr.logger.Info("discovery completed",
		logger.Int("targets_scraped", scraped),
		logger.Int("new_contacts", added),
		logger.Int("total_contacts", dr.registry.ContactCount()))

	return nil
}
