package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"bodymind-ai/internal/model"
)

const chunkInsertBatchSize = 100

type KnowledgeChunkRepository struct {
	db *gorm.DB
}

func NewKnowledgeChunkRepository(db *gorm.DB) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{db: db}
}

// CreateBatch inserts all chunks in one transaction: either every row is
// stored or none is.
func (r *KnowledgeChunkRepository) CreateBatch(ctx context.Context, chunks []model.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&chunks, chunkInsertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("create knowledge chunks batch failed: %w", err)
	}
	return nil
}

// ListAll returns every chunk in insertion order.
func (r *KnowledgeChunkRepository) ListAll(ctx context.Context) ([]model.KnowledgeChunk, error) {
	var chunks []model.KnowledgeChunk
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list knowledge chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *KnowledgeChunkRepository) Revision(ctx context.Context) (model.KnowledgeRevision, error) {
	var rev model.KnowledgeRevision
	err := r.db.WithContext(ctx).
		Model(&model.KnowledgeChunk{}).
		Select("COUNT(*) AS total, COALESCE(MAX(id), 0) AS max_id, COALESCE(MAX(chunk_id), '') AS max_chunk_id").
		Scan(&rev).Error
	if err != nil {
		return model.KnowledgeRevision{}, fmt.Errorf("read knowledge chunk revision failed: %w", err)
	}
	return rev, nil
}

func (r *KnowledgeChunkRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.KnowledgeChunk{}).Error
	if err != nil {
		return fmt.Errorf("delete knowledge chunks failed: %w", err)
	}
	return nil
}

func (r *KnowledgeChunkRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping knowledge store failed: %w", err)
	}
	return nil
}
