package document

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/docsage/docsage/internal/domain"
)

// buildChunkFields converts a chunk into a flat map[string]string for HSET.
func buildChunkFields(c *domain.Chunk) map[string]string {
	return map[string]string{
		"__text":   c.Text(),
		"__vector": vectorToBytes(c.Embedding()),
		"source":   c.Meta().Source,
	}
}

// parseChunkFields converts a flat hash map back into a chunk.
func parseChunkFields(documentID, sessionID string, index int, m map[string]string) domain.Chunk {
	return domain.ReconstructChunk(
		m["__text"],
		bytesToVector(m["__vector"]),
		domain.ChunkMeta{
			DocumentID: documentID,
			Index:      index,
			Source:     m["source"],
			SessionID:  sessionID,
		},
	)
}

func buildMetaFields(meta domain.DocumentMeta) map[string]string {
	return map[string]string{
		"source":       meta.Source,
		"processed_at": meta.ProcessedAt.UTC().Format(time.RFC3339Nano),
		"chunk_count":  strconv.Itoa(meta.ChunkCount),
		"strategy":     meta.Strategy,
	}
}

func parseMetaFields(documentID, sessionID string, m map[string]string) domain.DocumentMeta {
	processedAt, _ := time.Parse(time.RFC3339Nano, m["processed_at"])
	chunkCount, _ := strconv.Atoi(m["chunk_count"])
	return domain.DocumentMeta{
		DocumentID:  documentID,
		SessionID:   sessionID,
		Source:      m["source"],
		ProcessedAt: processedAt,
		ChunkCount:  chunkCount,
		Strategy:    m["strategy"],
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
