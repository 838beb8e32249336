package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepository interface {
	// Set records the user's vote on a message. value 0 removes the vote,
	// otherwise the existing vote is replaced.
	Set(ctx context.Context, userID, messageID uuid.UUID, value int) error
	NetScore(ctx context.Context, messageID uuid.UUID) (int, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Set(ctx context.Context, userID, messageID uuid.UUID, value int) error {
	if value == 0 {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND message_id = ?", userID, messageID).
			Delete(&model.Vote{}).Error
	}

	vote := &model.Vote{UserID: userID, MessageID: messageID, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(vote).Error
}

func (r *voteRepository) NetScore(ctx context.Context, messageID uuid.UUID) (int, error) {
	var net *int
	err := r.db.WithContext(ctx).Model(&model.Vote{}).
		Select("COALESCE(SUM(value), 0)").
		Where("message_id = ?", messageID).
		Scan(&net).Error
	if err != nil || net == nil {
		return 0, err
	}
	return *net, nil
}
