package media

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"classifieds-backend/internal/domain"
	"classifieds-backend/internal/pkg/validation"

	"github.com/google/uuid"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadSigner issues signed upload URLs for a storage bucket.
type UploadSigner interface {
	CreateSignedUploadURL(ctx context.Context, path string) (string, error)
	PublicURL(path string) string
}

// UploadResult is returned to the client before it uploads a photo.
// Path is the media ref to send back in the listing payload.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

type UploadService struct {
	Signer UploadSigner
	Now    func() time.Time
}

// ListingPhotoUploadURL signs an upload slot under the account's listings folder.
func (s *UploadService) ListingPhotoUploadURL(ctx context.Context, accountID uuid.UUID, fileName string) (*UploadResult, error) {
	name := unsafeFileChars.ReplaceAllString(path.Base(strings.TrimSpace(fileName)), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return nil, fmt.Errorf("%w: fileName is required", domain.ErrValidation)
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	p := fmt.Sprintf("%s%d-%s", validation.ListingMediaPrefix(accountID), now.UnixMilli(), name)

	signedURL, err := s.Signer.CreateSignedUploadURL(ctx, p)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: s.Signer.PublicURL(p),
		Path:      p,
	}, nil
}
