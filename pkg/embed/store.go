package embed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// StoredChunk is a chunk row with its embedding
type StoredChunk struct {
	ID        string
	Document  string
	Position  int
	Text      string
	Embedding []float32
}

// SearchResult is a chunk returned by similarity search
type SearchResult struct {
	Document   string
	Position   int
	Text       string
	Similarity float64
}

// Store persists document chunks and their embeddings in Postgres with
// pgvector. Similarity search uses cosine distance.
type Store struct {
	db        *sql.DB
	dimension int
}

// NewStore opens a connection pool and ensures the schema exists
func NewStore(ctx context.Context, databaseURL string, dimension int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db, dimension: dimension}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			id         uuid PRIMARY KEY,
			document   text NOT NULL,
			position   int NOT NULL,
			text       text NOT NULL,
			embedding  %s NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			UNIQUE (document, position)
		)`, vectorColumnType(s.dimension))
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create chunks table: %w", err)
	}

	return nil
}

// vectorColumnType renders the embedding column type. A non-positive
// dimension leaves the column untyped, accepting whatever dimension the
// embedding model produces.
func vectorColumnType(dimension int) string {
	if dimension <= 0 {
		return "vector"
	}
	return fmt.Sprintf("vector(%d)", dimension)
}

// InsertChunks writes a batch of chunks in one transaction. Re-embedding a
// document replaces its previous rows at the same positions.
func (s *Store) InsertChunks(ctx context.Context, chunks []StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks (id, document, position, text, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document, position) DO UPDATE
			SET text = EXCLUDED.text, embedding = EXCLUDED.embedding
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		id := ch.ID
		if id == "" {
			id = uuid.NewString()
		}
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx, id, ch.Document, ch.Position, ch.Text, vec); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %s/%d: %w", ch.Document, ch.Position, err)
		}
	}

	return tx.Commit()
}

// SearchSimilar returns the topK chunks nearest to the query embedding by
// cosine distance. An empty document narrows nothing; a non-empty one
// restricts the search to that document.
func (s *Store) SearchSimilar(ctx context.Context, queryEmbedding []float32, document string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}

	vec := pgvector.NewVector(queryEmbedding)

	q := `
		SELECT document, position, text, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
	`
	args := []interface{}{vec}
	if document != "" {
		q += ` WHERE document = $2 ORDER BY embedding <=> $1 LIMIT $3`
		args = append(args, document, topK)
	} else {
		q += ` ORDER BY embedding <=> $1 LIMIT $2`
		args = append(args, topK)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Document, &r.Position, &r.Text, &r.Similarity); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
