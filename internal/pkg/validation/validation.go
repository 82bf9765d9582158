package validation

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// emailRe matches /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// mediaRefRe: slash separated storage key segments of letters, digits, dot, dash and underscore.
var mediaRefRe = regexp.MustCompile(`^[A-Za-z0-9._-]+(/[A-Za-z0-9._-]+)*$`)

const maxMediaRefLen = 512

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidMediaRef accepts relative storage keys such as "listings/{account}/1700000000-photo.jpg".
// Absolute paths, URLs and parent segments are rejected.
func IsValidMediaRef(ref string) bool {
	if ref == "" || len(ref) > maxMediaRefLen || !mediaRefRe.MatchString(ref) {
		return false
	}
	for _, seg := range strings.Split(ref, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// ListingMediaPrefix is the storage folder that holds an account's listing photos.
func ListingMediaPrefix(accountID uuid.UUID) string {
	return "listings/" + accountID.String() + "/"
}

// IsOwnedMediaRef reports whether ref is a valid key inside the account's listings folder.
func IsOwnedMediaRef(ref string, accountID uuid.UUID) bool {
	return accountID != uuid.Nil && IsValidMediaRef(ref) && strings.HasPrefix(ref, ListingMediaPrefix(accountID))
}
