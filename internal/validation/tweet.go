package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

// ValidateTweetContent checks tweet content length in runes, so a 280-rune
// post of multi-byte characters is accepted.
func ValidateTweetContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < models.ContentMinLen {
		return fmt.Errorf("content cannot be empty")
	}
	if n > models.ContentMaxLen {
		return fmt.Errorf("content must not exceed %d characters", models.ContentMaxLen)
	}
	return nil
}
