package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomRepository is the membership gate: the thread core consults it for
// authorization and recipient selection only.
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	FindAll(ctx context.Context) ([]*model.Room, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	IsMember(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
	Join(ctx context.Context, userID, roomID uuid.UUID) error
	Leave(ctx context.Context, userID, roomID uuid.UUID) error
	Favorite(ctx context.Context, userID, roomID uuid.UUID) error
	Unfavorite(ctx context.Context, userID, roomID uuid.UUID) error
	// FavoriterIDs returns users who favorited the room and still have
	// notifications enabled.
	FavoriterIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
	MemberCount(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindAll(ctx context.Context) ([]*model.Room, error) {
	var rooms []*model.Room
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *roomRepository) IsMember(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *roomRepository) Join(ctx context.Context, userID, roomID uuid.UUID) error {
	member := &model.RoomMember{RoomID: roomID, UserID: userID}
	// Re-joining is a no-op at the storage layer.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member).Error
}

func (r *roomRepository) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&model.RoomMember{}).Error
}

func (r *roomRepository) Favorite(ctx context.Context, userID, roomID uuid.UUID) error {
	favorite := &model.RoomFavorite{RoomID: roomID, UserID: userID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(favorite).Error
}

func (r *roomRepository) Unfavorite(ctx context.Context, userID, roomID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&model.RoomFavorite{}).Error
}

func (r *roomRepository) FavoriterIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.RoomFavorite{}).
		Joins("JOIN users ON users.id = room_favorites.user_id").
		Where("room_favorites.room_id = ? AND users.notifications_enabled = ?", roomID, true).
		Pluck("room_favorites.user_id", &ids).Error
	return ids, err
}

func (r *roomRepository) MemberCount(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
