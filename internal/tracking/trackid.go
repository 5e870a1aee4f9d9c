package tracking

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Tracking ID format: 16 characters drawn uniformly from A-Z0-9.
const (
	trackingIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingIDLength   = 16

	// maxTrackingIDAttempts bounds redraws. With a 36^16 keyspace a
	// collision is effectively impossible, but a poisoned random source
	// must fail closed instead of spinning forever.
	maxTrackingIDAttempts = 100
)

// generateTrackingID draws tracking IDs from src until one passes the
// exists check, failing with ErrIDSpaceExhausted after the retry cap.
func generateTrackingID(src io.Reader, exists func(string) bool) (string, error) {
	for attempt := 0; attempt < maxTrackingIDAttempts; attempt++ {
		id, err := drawTrackingID(src)
		if err != nil {
			return "", fmt.Errorf("drawing tracking id: %w", err)
		}
		if !exists(id) {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// drawTrackingID produces one uniform 16-character candidate.
// Bytes outside the largest multiple of the alphabet size are rejected so
// every symbol is equally likely.
func drawTrackingID(src io.Reader) (string, error) {
	const limit = 252 // largest multiple of 36 below 256

	id := make([]byte, 0, trackingIDLength)
	buf := make([]byte, trackingIDLength)
	for len(id) < trackingIDLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			id = append(id, trackingIDAlphabet[int(b)%len(trackingIDAlphabet)])
			if len(id) == trackingIDLength {
				break
			}
		}
	}
	return string(id), nil
}

// defaultRandSource is the production random source for tracking IDs.
var defaultRandSource io.Reader = rand.Reader
