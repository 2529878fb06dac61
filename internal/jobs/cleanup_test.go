package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/chezmonami/marketplace-server/internal/model"
	"github.com/chezmonami/marketplace-server/internal/repository"
	"github.com/chezmonami/marketplace-server/internal/service"
)

type mockAnnonceRepo struct {
	markExpiredIDs    []string
	markExpiredCalls  atomic.Int64
	deleteExpiredRows int64
}

func (m *mockAnnonceRepo) FindByID(ctx context.Context, id string) (*model.Annonce, error) {
	return nil, nil
}

func (m *mockAnnonceRepo) FindPublished(ctx context.Context, limit, offset int) ([]model.Annonce, error) {
	return nil, nil
}

func (m *mockAnnonceRepo) FindByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Annonce, error) {
	return nil, nil
}

func (m *mockAnnonceRepo) Create(ctx context.Context, params model.CreateAnnonceParams, status model.AnnonceStatus, expiresAt time.Time) (*model.Annonce, error) {
	return nil, nil
}

func (m *mockAnnonceRepo) Update(ctx context.Context, id string, params model.UpdateAnnonceParams) (*model.Annonce, error) {
	return nil, nil
}

func (m *mockAnnonceRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockAnnonceRepo) MarkExpired(ctx context.Context, now time.Time) ([]string, error) {
	m.markExpiredCalls.Add(1)
	return m.markExpiredIDs, nil
}

func (m *mockAnnonceRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.deleteExpiredRows, nil
}

func (m *mockAnnonceRepo) WithTx(tx *sqlx.Tx) repository.AnnonceRepository {
	return m
}

type mockPromotionRepo struct {
	deleteEndedRows int64
}

func (m *mockPromotionRepo) FindByID(ctx context.Context, id string) (*model.Promotion, error) {
	return nil, nil
}

func (m *mockPromotionRepo) FindActive(ctx context.Context, at time.Time) ([]model.Promotion, error) {
	return nil, nil
}

func (m *mockPromotionRepo) FindActiveByStructure(ctx context.Context, structureID string, at time.Time) ([]model.Promotion, error) {
	return nil, nil
}

func (m *mockPromotionRepo) FindByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Promotion, error) {
	return nil, nil
}

func (m *mockPromotionRepo) Create(ctx context.Context, params model.CreatePromotionParams) (*model.Promotion, error) {
	return nil, nil
}

func (m *mockPromotionRepo) Update(ctx context.Context, id string, params model.UpdatePromotionParams) (*model.Promotion, error) {
	return nil, nil
}

func (m *mockPromotionRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockPromotionRepo) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.deleteEndedRows, nil
}

func (m *mockPromotionRepo) WithTx(tx *sqlx.Tx) repository.PromotionRepository {
	return m
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewCleanupJob(nil, nil, nil, nil, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
	})

	t.Run("runs cleanup on start and stops cleanly", func(t *testing.T) {
		annonceRepo := &mockAnnonceRepo{markExpiredIDs: []string{"a1", "a2"}, deleteExpiredRows: 3}
		promoRepo := &mockPromotionRepo{deleteEndedRows: 1}
		annonceService := service.NewAnnonceService(annonceRepo, nil, nil)

		job := NewCleanupJob(annonceService, annonceRepo, promoRepo, nil, time.Hour)

		job.Start()
		assert.Eventually(t, func() bool {
			return annonceRepo.markExpiredCalls.Load() == 1
		}, time.Second, 5*time.Millisecond)
		job.Stop()
	})
}
