package credits

import (
	"context"

	"github.com/adsparkhq/adspark-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages credit balances and the append-only event ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DecrementBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	IncrementBalance(ctx context.Context, userID uuid.UUID, amount int) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	CreateEvent(ctx context.Context, event *models.CreditEvent) error
	ListEventsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// DecrementBalance applies a conditional decrement and reports whether a row
// was updated. Zero rows means the balance was below the requested amount.
func (r *repository) DecrementBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, amount).
		UpdateColumn("credits", gorm.Expr("credits - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementBalance(ctx context.Context, userID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("credits").First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.Credits, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *models.CreditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEventsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditEvent, error) {
	var events []models.CreditEvent
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
