package serialization

import (
	"crypto/sha256"
	"encoding/hex"
)

// MetadataChecksum is the metadata key holding the hex SHA-256 of the data
// section.
const MetadataChecksum = "rectflow.sha256"

// checksum returns the hex SHA-256 of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verifyChecksum compares data against the stored checksum, if any.
func verifyChecksum(data []byte, metadata map[string]string) error {
	want, ok := metadata[MetadataChecksum]
	if !ok {
		return nil
	}
	if got := checksum(data); got != want {
		return &ValidationError{Err: ErrChecksumMismatch, Details: "got " + got + ", want " + want}
	}
	return nil
}
