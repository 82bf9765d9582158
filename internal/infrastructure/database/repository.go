package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classifieds-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository implements domain.ListingRepository on gorm (Postgres in production, SQLite in tests).
type GormRepository struct {
	DB *gorm.DB
}

var _ domain.ListingRepository = (*GormRepository)(nil)

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{DB: db}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

func (r *GormRepository) db(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx)
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(tx domain.ListingRepository) error) error {
	var fnErr error
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&GormRepository{DB: tx})
		return fnErr
	})
	if err != nil {
		if fnErr != nil {
			return fnErr
		}
		return wrap(err)
	}
	return nil
}

func (r *GormRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	if err := r.db(ctx).Preload("Plan").Where("id = ?", id).First(&a).Error; err != nil {
		return nil, wrap(err)
	}
	return &a, nil
}

func (r *GormRepository) RollOverMonth(ctx context.Context, id uuid.UUID, label string) error {
	err := r.db(ctx).Model(&domain.Account{}).
		Where("id = ? AND (current_month_label IS NULL OR current_month_label <> ?)", id, label).
		Updates(map[string]interface{}{
			"current_month_label":   label,
			"ads_posted_this_month": 0,
		}).Error
	return wrap(err)
}

func (r *GormRepository) ReserveMonthlySlot(ctx context.Context, id uuid.UUID, maxAds int) (bool, error) {
	res := r.db(ctx).Model(&domain.Account{}).
		Where("id = ? AND ads_posted_this_month < ?", id, maxAds).
		Updates(map[string]interface{}{
			"ads_posted_this_month": gorm.Expr("ads_posted_this_month + 1"),
			"ads_count":             gorm.Expr("ads_count + 1"),
		})
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) SetPlanExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	err := r.db(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("plan_expires_at", expiresAt).Error
	return wrap(err)
}

func (r *GormRepository) GetPromotion(ctx context.Context) (*domain.Promotion, error) {
	var p domain.Promotion
	err := r.db(ctx).Order("updated_at DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

// NextSequence must run inside Transaction: the UPDATE row lock serializes concurrent callers until commit.
func (r *GormRepository) NextSequence(ctx context.Context, name string) (int64, error) {
	db := r.db(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Sequence{Name: name}).Error; err != nil {
		return 0, wrap(err)
	}
	if err := db.Model(&domain.Sequence{}).Where("name = ?", name).
		Update("value", gorm.Expr("value + 1")).Error; err != nil {
		return 0, wrap(err)
	}
	var seq domain.Sequence
	if err := db.Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, wrap(err)
	}
	return seq.Value, nil
}

func (r *GormRepository) CreateListing(ctx context.Context, l *domain.Listing) error {
	return wrap(r.db(ctx).Create(l).Error)
}

func (r *GormRepository) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := r.db(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, wrap(err)
	}
	return &l, nil
}

func (r *GormRepository) TransitionListing(ctx context.Context, id uuid.UUID, from domain.ListingStatus, updates map[string]interface{}) (bool, error) {
	res := r.db(ctx).Model(&domain.Listing{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) UpdateListing(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := r.db(ctx).Model(&domain.Listing{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Listing, error) {
	var out []domain.Listing
	q := r.db(ctx).Where("status = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", domain.StatusApproved, now).
		Order("expiry_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (r *GormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	var out []domain.Listing
	if err := r.db(ctx).Where("owner_account_id = ?", ownerID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// DeleteListing is not transactional on its own; callers wrap it in Transaction.
func (r *GormRepository) DeleteListing(ctx context.Context, id uuid.UUID) error {
	db := r.db(ctx)
	dependents := []interface{}{
		&domain.Report{},
		&domain.Favorite{},
		&domain.ListingView{},
		&domain.ListingStats{},
		&domain.ListingEvent{},
	}
	for _, m := range dependents {
		if err := db.Where("listing_id = ?", id).Delete(m).Error; err != nil {
			return wrap(err)
		}
	}
	res := db.Where("id = ?", id).Delete(&domain.Listing{})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRepository) CreateStats(ctx context.Context, s *domain.ListingStats) error {
	return wrap(r.db(ctx).Create(s).Error)
}

func (r *GormRepository) GetStats(ctx context.Context, listingID uuid.UUID) (*domain.ListingStats, error) {
	var s domain.ListingStats
	if err := r.db(ctx).Where("listing_id = ?", listingID).First(&s).Error; err != nil {
		return nil, wrap(err)
	}
	return &s, nil
}

func (r *GormRepository) SaveStats(ctx context.Context, s *domain.ListingStats) (bool, error) {
	res := r.db(ctx).Model(&domain.ListingStats{}).
		Where("listing_id = ? AND version = ?", s.ListingID, s.Version).
		Updates(map[string]interface{}{
			"views":           s.Views,
			"clicks":          s.Clicks,
			"shares":          s.Shares,
			"reporting_count": s.ReportingCount,
			"views_by_city":   s.ViewsByCity,
			"clicks_by_city":  s.ClicksByCity,
			"shares_by_city":  s.SharesByCity,
			"reports_by_city": s.ReportsByCity,
			"views_history":   s.ViewsHistory,
			"clicks_history":  s.ClicksHistory,
			"shares_history":  s.SharesHistory,
			"reports_history": s.ReportsHistory,
			"conversion_rate": s.ConversionRate,
			"version":         s.Version + 1,
		})
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	s.Version++
	return true, nil
}

func (r *GormRepository) InsertView(ctx context.Context, v *domain.ListingView) (bool, error) {
	res := r.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(v)
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) FindReport(ctx context.Context, listingID, reporterID uuid.UUID) (*domain.Report, error) {
	var rep domain.Report
	err := r.db(ctx).Where("listing_id = ? AND reporter_account_id = ?", listingID, reporterID).First(&rep).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &rep, nil
}

func (r *GormRepository) CountReportsSince(ctx context.Context, reporterID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db(ctx).Model(&domain.Report{}).
		Where("reporter_account_id = ? AND reported_at >= ?", reporterID, since).
		Count(&n).Error
	return n, wrap(err)
}

func (r *GormRepository) InsertReport(ctx context.Context, rep *domain.Report) (bool, error) {
	res := r.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rep)
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) IncrementLocation(ctx context.Context, country, city string) error {
	err := r.db(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "country"}, {Name: "city"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"listing_count": gorm.Expr("location_counts.listing_count + 1"),
			"updated_at":    time.Now().UTC(),
		}),
	}).Create(&domain.LocationCount{Country: country, City: city, ListingCount: 1}).Error
	return wrap(err)
}

func (r *GormRepository) AppendEvent(ctx context.Context, e *domain.ListingEvent) error {
	return wrap(r.db(ctx).Create(e).Error)
}

func (r *GormRepository) ListEvents(ctx context.Context, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	var out []domain.ListingEvent
	if err := r.db(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func (r *GormRepository) AddFavorite(ctx context.Context, accountID, listingID uuid.UUID) error {
	err := r.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Favorite{AccountID: accountID, ListingID: listingID}).Error
	return wrap(err)
}

func (r *GormRepository) RemoveFavorite(ctx context.Context, accountID, listingID uuid.UUID) error {
	err := r.db(ctx).Where("account_id = ? AND listing_id = ?", accountID, listingID).Delete(&domain.Favorite{}).Error
	return wrap(err)
}
