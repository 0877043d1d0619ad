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

// SourceRepository handles persistence of whole-document knowledge sources
// and their ingestion lifecycle transitions.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

func (r *SourceRepository) Create(ctx context.Context, s *domain.Source) error {
	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO sources (id, agent_id, type, origin, content, status, embedding, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.AgentID, s.Type, s.Origin, s.Content, s.Status, nullableVector(s.Embedding), metadata, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var s domain.Source
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, agent_id, type, origin, content, status, embedding, metadata, created_at, updated_at
		 FROM sources WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.AgentID, &s.Type, &s.Origin, &s.Content, &s.Status, &embedding, &s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	if embedding != nil {
		s.Embedding = embedding.Slice()
	}
	return &s, nil
}

func (r *SourceRepository) ListByAgent(ctx context.Context, agentID string) ([]*domain.Source, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, agent_id, type, origin, content, status, embedding, metadata, created_at, updated_at
		 FROM sources WHERE agent_id = $1 ORDER BY created_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceRows(rows)
}

// Delete removes a source; owned chunks cascade at the schema level.
func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM sources WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// MarkProcessing refreshes the processing claim on a source, restarting the
// watchdog timeout. It applies only while the source is still processing;
// terminal states never transition backward.
func (r *SourceRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET updated_at = $1
		 WHERE id = $2 AND status = $3`,
		time.Now().UTC(), id, domain.SourceStatusProcessing,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkReady transitions a processing source to ready with its embedding.
// The status guard makes the transition a compare-and-swap: zero rows
// affected means another writer (ingestion or watchdog) won the race and the
// call is a no-op.
func (r *SourceRepository) MarkReady(ctx context.Context, id string, embedding []float32) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET status = $1, embedding = $2, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.SourceStatusReady, pgvector.NewVector(embedding), time.Now().UTC(), id, domain.SourceStatusProcessing,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkError transitions a processing source to error, recording the
// diagnostic in metadata. Same guard semantics as MarkReady.
func (r *SourceRepository) MarkError(ctx context.Context, id, message string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources
		 SET status = $1, metadata = metadata || jsonb_build_object('error', $2::text), updated_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.SourceStatusError, message, time.Now().UTC(), id, domain.SourceStatusProcessing,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// FailStuck moves every source that has sat in processing since before the
// cutoff to error in one guarded statement. Rows already terminal are
// untouched, so the sweep is idempotent and safe to race with ingestion.
func (r *SourceRepository) FailStuck(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources
		 SET status = $1, metadata = metadata || jsonb_build_object('error', $2::text), updated_at = $3
		 WHERE status = $4 AND updated_at < $5`,
		domain.SourceStatusError, message, time.Now().UTC(), domain.SourceStatusProcessing, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanSourceRows(rows pgx.Rows) ([]*domain.Source, error) {
	var results []*domain.Source
	for rows.Next() {
		var s domain.Source
		var embedding *pgvector.Vector
		if err := rows.Scan(&s.ID, &s.AgentID, &s.Type, &s.Origin, &s.Content, &s.Status, &embedding, &s.Metadata, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			s.Embedding = embedding.Slice()
		}
		results = append(results, &s)
	}
	return results, rows.Err()
}

func nullableVector(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}
