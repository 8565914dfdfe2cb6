package repository

import (
	"encoding/binary"
	"math"

	"github.com/askfolio/askfolio/internal/domain"
	"github.com/google/uuid"
)

// ChunkRepository handles document chunk and embedding persistence
type ChunkRepository struct {
	db *DB
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// CreateBatch inserts all chunks of a document in one transaction
func (r *ChunkRepository) CreateBatch(chunks []domain.Chunk) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.New().String()
		}
		if _, err := stmt.Exec(chunks[i].ID, chunks[i].DocumentID, chunks[i].Index,
			chunks[i].Content, encodeEmbedding(chunks[i].Embedding)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListAll retrieves every chunk with its embedding. Used by the SQLite
// retriever to hold the corpus in memory for similarity search.
func (r *ChunkRepository) ListAll() ([]domain.Chunk, error) {
	rows, err := r.db.Query(`
		SELECT id, document_id, chunk_index, content, embedding
		FROM document_chunks ORDER BY document_id, chunk_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var blob []byte

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index,
			&chunk.Content, &blob); err != nil {
			return nil, err
		}

		chunk.Embedding = decodeEmbedding(blob)
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// DeleteByDocument deletes all chunks of a document
func (r *ChunkRepository) DeleteByDocument(documentID string) error {
	_, err := r.db.Exec(`DELETE FROM document_chunks WHERE document_id = ?`, documentID)
	return err
}

// Count returns the total number of chunks
func (r *ChunkRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// encodeEmbedding packs a vector as little-endian float32 bytes
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
