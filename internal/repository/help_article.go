package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parkwebdev/recall/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// HelpArticleRepository handles persistence of help-center articles.
type HelpArticleRepository struct {
	db dbtx
}

func NewHelpArticleRepository(pool *pgxpool.Pool) *HelpArticleRepository {
	return &HelpArticleRepository{db: pool}
}

// Upsert inserts an article or replaces its content and embedding in place.
func (r *HelpArticleRepository) Upsert(ctx context.Context, a *domain.HelpArticle) error {
	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO help_articles (id, agent_id, category_id, title, content, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id)
		 DO UPDATE SET category_id = EXCLUDED.category_id,
		               title = EXCLUDED.title,
		               content = EXCLUDED.content,
		               embedding = EXCLUDED.embedding,
		               updated_at = EXCLUDED.updated_at`,
		a.ID, a.AgentID, nullableString(a.CategoryID), a.Title, a.Content, nullableVector(a.Embedding), createdAt, now,
	)
	return err
}

func (r *HelpArticleRepository) GetByID(ctx context.Context, id string) (*domain.HelpArticle, error) {
	var a domain.HelpArticle
	var categoryID *string
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, agent_id, category_id, title, content, embedding, created_at, updated_at
		 FROM help_articles WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.AgentID, &categoryID, &a.Title, &a.Content, &embedding, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHelpArticleNotFound
		}
		return nil, err
	}
	if categoryID != nil {
		a.CategoryID = *categoryID
	}
	if embedding != nil {
		a.Embedding = embedding.Slice()
	}
	return &a, nil
}

func (r *HelpArticleRepository) ListByAgent(ctx context.Context, agentID string) ([]*domain.HelpArticle, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, agent_id, category_id, title, content, embedding, created_at, updated_at
		 FROM help_articles WHERE agent_id = $1 ORDER BY updated_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*domain.HelpArticle
	for rows.Next() {
		var a domain.HelpArticle
		var categoryID *string
		var embedding *pgvector.Vector
		if err := rows.Scan(&a.ID, &a.AgentID, &categoryID, &a.Title, &a.Content, &embedding, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if categoryID != nil {
			a.CategoryID = *categoryID
		}
		if embedding != nil {
			a.Embedding = embedding.Slice()
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

func (r *HelpArticleRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM help_articles WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrHelpArticleNotFound
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
