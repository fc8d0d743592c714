package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/prove/internal/models"
)

type StudyStoreConfig struct {
	ConnString      string
	TableName       string
	VectorDim       int
	PageSize        int
	SearchLimit     int
	SearchThreshold float32
}

// StudyStore persists studies in Postgres with a pgvector embedding column.
// The (title, abstract) pair carries a unique constraint so re-ingesting the
// same study is an idempotent no-op.
type StudyStore struct {
	config StudyStoreConfig
	pool   *pgxpool.Pool
}

// stopWords are dropped from keyword queries before building the filter.
var stopWords = map[string]bool{
	"what": true, "is": true, "the": true, "a": true,
	"an": true, "and": true, "or": true, "but": true,
}

func NewWithConfig(config StudyStoreConfig) (*StudyStore, error) {
	if config.TableName == "" {
		config.TableName = "studies"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI-style embeddings
	}
	if config.PageSize == 0 {
		config.PageSize = 10
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if config.SearchThreshold == 0 {
		config.SearchThreshold = 0.7
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &StudyStore{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *StudyStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL,
			authors TEXT,
			year INTEGER,
			url TEXT,
			source TEXT,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (title, abstract)
		)`, s.config.TableName, s.config.VectorDim)

	_, err = s.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		s.config.TableName, s.config.TableName)

	_, err = s.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Upsert inserts a batch of studies, silently skipping rows whose
// (title, abstract) key already exists. Studies without an embedding are
// stored with a NULL embedding column.
func (s *StudyStore) Upsert(ctx context.Context, studies []models.Study) error {
	if len(studies) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (title, abstract, authors, year, url, source, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (title, abstract) DO NOTHING`,
		s.config.TableName)

	for _, study := range studies {
		var embedding interface{}
		if len(study.Embedding) > 0 {
			embedding = pgvector.NewVector(study.Embedding)
		}

		_, err = tx.Exec(ctx, stmt,
			sanitizeUTF8(study.Title),
			sanitizeUTF8(study.Abstract),
			sanitizeUTF8(study.Authors),
			study.Year,
			study.URL,
			study.Source,
			embedding,
		)
		if err != nil {
			return fmt.Errorf("failed to insert study: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// SearchKeyword tokenizes the phrase, strips stop words, and requires each
// remaining token to substring-match the title or abstract. An empty token
// set returns the unfiltered table, newest first.
func (s *StudyStore) SearchKeyword(ctx context.Context, term string, page int) (models.SearchResultPage, error) {
	if page < 0 {
		page = 0
	}

	where, args := s.keywordFilter(term)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.config.TableName, where)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.SearchResultPage{}, fmt.Errorf("failed to count studies: %v", err)
	}

	query := fmt.Sprintf(`
		SELECT id, title, abstract, authors, year, url, source, created_at
		FROM %s%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		s.config.TableName, where, len(args)+1, len(args)+2)
	args = append(args, s.config.PageSize, page*s.config.PageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.SearchResultPage{}, fmt.Errorf("failed to query studies: %v", err)
	}
	defer rows.Close()

	studies, err := scanStudies(rows)
	if err != nil {
		return models.SearchResultPage{}, err
	}

	return models.NewSearchResultPage(studies, total, page, s.config.PageSize), nil
}

func (s *StudyStore) keywordFilter(term string) (string, []interface{}) {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(term)) {
		if !stopWords[word] {
			tokens = append(tokens, word)
		}
	}
	if len(tokens) == 0 {
		return "", nil
	}

	var conditions []string
	var args []interface{}
	for i, token := range tokens {
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR abstract ILIKE $%d)", i+1, i+1))
		args = append(args, "%"+token+"%")
	}

	return " WHERE " + strings.Join(conditions, " OR "), args
}

// SearchSimilar returns the nearest studies by cosine similarity above the
// threshold, most similar first. Rows without an embedding never match.
func (s *StudyStore) SearchSimilar(ctx context.Context, embedding []float32, threshold float32, limit int) ([]models.Study, error) {
	if threshold == 0 {
		threshold = s.config.SearchThreshold
	}
	if limit == 0 {
		limit = s.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, title, abstract, authors, year, url, source, created_at
		FROM %s
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar studies: %v", err)
	}
	defer rows.Close()

	return scanStudies(rows)
}

// Recent returns the most recently ingested studies.
func (s *StudyStore) Recent(ctx context.Context, limit int) ([]models.Study, error) {
	if limit == 0 {
		limit = s.config.PageSize
	}

	query := fmt.Sprintf(`
		SELECT id, title, abstract, authors, year, url, source, created_at
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent studies: %v", err)
	}
	defer rows.Close()

	return scanStudies(rows)
}

func scanStudies(rows pgx.Rows) ([]models.Study, error) {
	studies := []models.Study{}
	for rows.Next() {
		var study models.Study
		err := rows.Scan(
			&study.ID,
			&study.Title,
			&study.Abstract,
			&study.Authors,
			&study.Year,
			&study.URL,
			&study.Source,
			&study.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		studies = append(studies, study)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}
	return studies, nil
}

func (s *StudyStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
