package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/repository"
	"github.com/chezmonami/marketplace-server/internal/service"
)

// Retention windows for data the cleanup job prunes.
const (
	expiredAnnonceRetention = 30 * 24 * time.Hour
	endedPromotionRetention = 90 * 24 * time.Hour

	// In-memory cart stores idle past this are torn down; the cart
	// itself persists in storage for config.CartTTL and reloads on the
	// device's next request.
	idleCartRetention = time.Hour
)

// CleanupJob periodically expires due annonces, prunes rows past their
// retention window, and reclaims idle cart stores.
type CleanupJob struct {
	annonceService *service.AnnonceService
	annonceRepo    repository.AnnonceRepository
	promotionRepo  repository.PromotionRepository
	cartManager    *cart.Manager
	interval       time.Duration
	done           chan struct{}
}

func NewCleanupJob(
	annonceService *service.AnnonceService,
	annonceRepo repository.AnnonceRepository,
	promotionRepo repository.PromotionRepository,
	cartManager *cart.Manager,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		annonceService: annonceService,
		annonceRepo:    annonceRepo,
		promotionRepo:  promotionRepo,
		cartManager:    cartManager,
		interval:       interval,
		done:           make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	j.runCleanup(ctx, "due annonces", func(ctx context.Context) (int64, error) {
		count, err := j.annonceService.ExpireDue(ctx, now)
		return int64(count), err
	})
	j.runCleanup(ctx, "expired annonces", func(ctx context.Context) (int64, error) {
		return j.annonceRepo.DeleteExpiredBefore(ctx, now.Add(-expiredAnnonceRetention))
	})
	j.runCleanup(ctx, "ended promotions", func(ctx context.Context) (int64, error) {
		return j.promotionRepo.DeleteEndedBefore(ctx, now.Add(-endedPromotionRetention))
	})
	if j.cartManager != nil {
		j.runCleanup(ctx, "idle cart stores", func(ctx context.Context) (int64, error) {
			return int64(j.cartManager.ReleaseIdle(idleCartRetention)), nil
		})
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
