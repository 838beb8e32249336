package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/pkg/apperror"
	"gorm.io/gorm"
)

type MessageRepository interface {
	// Create inserts the message and, for replies, bumps the parent's
	// children_count in the same transaction so the counter can never be
	// observed without the row (and concurrent replies never lose updates).
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	// FindRoots returns a page of non-deleted root posts for a room plus the
	// total root count. sortBy is latest, top or hot.
	FindRoots(ctx context.Context, roomID uuid.UUID, sortBy string, offset, limit int) ([]*model.Message, int64, error)
	// FindChildren fetches every direct child of the given parents in one
	// query, creation order. Deleted children are included so the tree
	// builder can promote their live descendants.
	FindChildren(ctx context.Context, parentIDs []uuid.UUID) ([]*model.Message, error)
	NetScores(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if msg.ParentID != nil {
			if err := tx.Model(&model.Message{}).Where("id = ?", *msg.ParentID).
				UpdateColumn("children_count", gorm.Expr("children_count + ?", 1)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *messageRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindRoots(ctx context.Context, roomID uuid.UUID, sortBy string, offset, limit int) ([]*model.Message, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("room_id = ? AND parent_id IS NULL AND is_deleted = ?", roomID, false)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&model.Message{}).
		Preload("Sender").
		Select("messages.*").
		Joins("LEFT JOIN votes ON votes.message_id = messages.id").
		Where("messages.room_id = ? AND messages.parent_id IS NULL AND messages.is_deleted = ?", roomID, false).
		Group("messages.id")

	switch sortBy {
	case "top":
		query = query.Order("COALESCE(SUM(votes.value), 0) DESC, messages.created_at DESC")
	case "hot":
		// Gravity decay: score shifted by +1 so fresh zero-vote posts still
		// surface, age in hours with a 2h offset.
		query = query.Order(
			"(COALESCE(SUM(votes.value), 0) + 1) / POWER(EXTRACT(EPOCH FROM (NOW() - messages.created_at)) / 3600 + 2, 1.5) DESC")
	default: // latest
		query = query.Order("messages.created_at DESC")
	}

	var roots []*model.Message
	if err := query.Offset(offset).Limit(limit).Find(&roots).Error; err != nil {
		return nil, 0, err
	}
	return roots, total, nil
}

func (r *messageRepository) FindChildren(ctx context.Context, parentIDs []uuid.UUID) ([]*model.Message, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var children []*model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC").
		Find(&children).Error
	return children, err
}

func (r *messageRepository) NetScores(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	scores := make(map[uuid.UUID]int, len(messageIDs))
	if len(messageIDs) == 0 {
		return scores, nil
	}

	type row struct {
		MessageID uuid.UUID
		Net       int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Vote{}).
		Select("message_id, COALESCE(SUM(value), 0) as net").
		Where("message_id IN ?", messageIDs).
		Group("message_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rr := range rows {
		scores[rr.MessageID] = rr.Net
	}
	return scores, nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}
