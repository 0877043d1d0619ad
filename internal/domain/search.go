package domain

// Tier identifies one of the three independently searchable knowledge
// collections.
type Tier string

const (
	TierChunk       Tier = "chunk"
	TierSource      Tier = "source"
	TierHelpArticle Tier = "help_article"
)

// IsValidTier checks whether t names a known tier.
func IsValidTier(t Tier) bool {
	switch t {
	case TierChunk, TierSource, TierHelpArticle:
		return true
	}
	return false
}

// Per-tier search defaults. Help articles use a lower threshold because
// article embeddings are coarser than chunk embeddings.
const (
	DefaultChunkThreshold       = 0.7
	DefaultSourceThreshold      = 0.7
	DefaultHelpArticleThreshold = 0.6

	DefaultChunkLimit       = 5
	DefaultSourceLimit      = 5
	DefaultHelpArticleLimit = 3
)

// SearchParams carries the caller-supplied inputs for a single-tier search.
// AgentID scopes every candidate row; there is no ambient tenant context.
type SearchParams struct {
	AgentID        string
	QueryEmbedding []float32
	Threshold      float64
	Limit          int
}

// ValidateSearchParams rejects invalid inputs instead of clamping them:
// silent clamping would mask caller bugs that change result sets. A limit of
// zero is legal and yields an empty result.
func ValidateSearchParams(p SearchParams) error {
	if p.AgentID == "" {
		return ErrMissingAgentID
	}
	if len(p.QueryEmbedding) == 0 {
		return ErrEmptyQueryEmbedding
	}
	if p.Threshold <= 0 || p.Threshold > 1 {
		return ErrInvalidThreshold
	}
	if p.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// SearchResult is one ranked candidate returned from a tier search.
// Similarity is 1 - cosine distance and always exceeds the caller's
// threshold. Results are ordered by descending similarity with ascending id
// as the tiebreak.
type SearchResult struct {
	ID         string
	Content    string
	Similarity float64

	// Chunk-tier fields, populated from the parent source join.
	SourceID   string
	ChunkIndex int
	SourceName string
	SourceType SourceType

	// Help-article tier fields.
	Title      string
	CategoryID string
}
