package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateGroupToken creates a registration token for a group.
// The readable prefix is the group's numeric id; the rest is random.
func GenerateGroupToken(groupID string) string {
	prefix := groupID
	if i := strings.Index(prefix, "@"); i >= 0 {
		prefix = prefix[:i]
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return random
	}
	return fmt.Sprintf("%s-%s", prefix, random)
}
