package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-ordered id; rows created by the engine sort
// by insertion without a separate sequence.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}
