package normalize

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"github.com/amaumene/traktdb/internal/models"
)

// ContentHash derives a stable row id from the row's non-id columns: the
// lowercase hex SHA-1 of their compact JSON encoding with keys sorted and
// HTML escaping disabled. Stored ids depend on this exact encoding.
func ContentHash(columns map[string]interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Maps encode with sorted keys; values are scalars so this cannot fail
	_ = enc.Encode(columns)

	sum := sha1.Sum(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:])
}

// Collected builds a collected row with its content-hash id
func Collected(mediaType models.MediaType, mediaID int64, collectedAt string) models.CollectedEntry {
	return models.CollectedEntry{
		ID: ContentHash(map[string]interface{}{
			"collected_at": collectedAt,
			"media_id":     mediaID,
			"type":         mediaType,
		}),
		Type:        mediaType,
		MediaID:     mediaID,
		CollectedAt: collectedAt,
	}
}

// Rated builds a ratings row with its content-hash id
func Rated(mediaType models.MediaType, mediaID int64, rating int, ratedAt string) models.RatedEntry {
	return models.RatedEntry{
		ID: ContentHash(map[string]interface{}{
			"media_id": mediaID,
			"rated_at": ratedAt,
			"rating":   rating,
			"type":     mediaType,
		}),
		Type:    mediaType,
		MediaID: mediaID,
		Rating:  rating,
		RatedAt: ratedAt,
	}
}
