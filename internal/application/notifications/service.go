package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classifieds-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notice is one inbox entry to persist.
type Notice struct {
	TargetType  string
	RecipientID *uuid.UUID
	Kind        string
	ListingID   *uuid.UUID
	Payload     map[string]interface{}
}

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Notify stores an inbox entry for a user or for the admin inbox.
func (s *Service) Notify(ctx context.Context, n Notice) (*domain.Notification, error) {
	switch n.TargetType {
	case domain.TargetUser:
		if n.RecipientID == nil || *n.RecipientID == uuid.Nil {
			return nil, fmt.Errorf("%w: user notification needs a recipient", domain.ErrValidation)
		}
	case domain.TargetAdmin:
		n.RecipientID = nil
	default:
		return nil, fmt.Errorf("%w: unknown target %q", domain.ErrValidation, n.TargetType)
	}
	payload := []byte("{}")
	if n.Payload != nil {
		b, err := json.Marshal(n.Payload)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	row := &domain.Notification{
		TargetType:  n.TargetType,
		RecipientID: n.RecipientID,
		Kind:        n.Kind,
		ListingID:   n.ListingID,
		Payload:     datatypes.JSON(payload),
		CreatedAt:   s.now(),
	}
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return row, nil
}

func (s *Service) ListForAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	q := s.DB.WithContext(ctx).
		Where("target_type = ? AND recipient_id = ?", domain.TargetUser, accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}

func (s *Service) ListAdmin(ctx context.Context, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	q := s.DB.WithContext(ctx).Where("target_type = ?", domain.TargetAdmin).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}

// MarkRead marks a notification read. Users may only mark their own; admins may mark admin entries.
func (s *Service) MarkRead(ctx context.Context, id, accountID uuid.UUID, isAdmin bool) error {
	var n domain.Notification
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	switch {
	case n.TargetType == domain.TargetAdmin && isAdmin:
	case n.RecipientID != nil && *n.RecipientID == accountID:
	default:
		return domain.ErrUnauthorized
	}
	if n.ReadAt != nil {
		return nil
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Notification{}).Where("id = ?", id).Update("read_at", s.now()).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}
