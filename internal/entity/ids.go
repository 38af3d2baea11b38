package entity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// IDForMetadata and IDForImplementation produce the deterministic chunk id
// string for metadata/implementation chunks: "{file_path}::{entity_name}::{chunk_kind}".
func IDForMetadata(filePath, entityName string) string {
	return fmt.Sprintf("%s::%s::%s", filePath, entityName, ChunkMetadata)
}

func IDForImplementation(filePath, entityName string) string {
	return fmt.Sprintf("%s::%s::%s", filePath, entityName, ChunkImplementation)
}

// IDForRelation produces the deterministic chunk id string for a relation
// chunk: "{from}::{kind}::{to}", with importType appended when present so
// that distinct file-operation relations to the same target don't collide.
func IDForRelation(from string, kind RelationKind, to, importType string) string {
	id := fmt.Sprintf("%s::%s::%s", from, kind, to)
	if importType != "" {
		id = fmt.Sprintf("%s::%s", id, importType)
	}
	return id
}

// PointID hashes a chunk id string down to the unsigned 64-bit integer used
// as the vector store's point id: the first 8 bytes of SHA-256, big-endian.
func PointID(chunkID string) uint64 {
	sum := sha256.Sum256([]byte(chunkID))
	return binary.BigEndian.Uint64(sum[:8])
}

// ContentHash returns the hex-encoded SHA-256 of a chunk's content. Two
// chunks with equal id and equal content hash are identical and need not be
// re-embedded.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
