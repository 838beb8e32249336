package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/dto"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/internal/repository"
	"github.com/redis/go-redis/v9"
)

type NotificationService interface {
	// FanOut notifies every favoriter of the room about a new message,
	// excluding the sender. Each recipient is dispatched independently;
	// failures are logged and never propagate.
	FanOut(ctx context.Context, room *model.Room, msg *model.Message, actor *model.User)
	// ResetSuppression clears the push-suppression marker for (user, room).
	// Called when the user (re)joins a room so the next new post produces a
	// fresh push.
	ResetSuppression(ctx context.Context, userID, roomID uuid.UUID) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]dto.NotificationResponse, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	roomRepo    repository.RoomRepository
	redisClient *redis.Client
}

func NewNotificationService(repo repository.NotificationRepository, roomRepo repository.RoomRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		roomRepo:    roomRepo,
		redisClient: redisClient,
	}
}

func (s *notificationService) FanOut(ctx context.Context, room *model.Room, msg *model.Message, actor *model.User) {
	recipients, err := s.roomRepo.FavoriterIDs(ctx, room.ID)
	if err != nil {
		log.Printf("notification fan-out: failed to load favoriters of room %s: %v", room.ID, err)
		return
	}

	notifType := model.NotificationTypeNewPost
	text := fmt.Sprintf("%s posted in '%s'", actor.Username, room.Name)
	if msg.ParentID != nil {
		notifType = model.NotificationTypeNewReply
		text = fmt.Sprintf("%s replied in '%s'", actor.Username, room.Name)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	delivered, failed := 0, 0

	for _, recipient := range recipients {
		if recipient == actor.ID {
			continue
		}

		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			err := s.dispatch(ctx, userID, room, msg, actor, notifType, text)
			mu.Lock()
			if err != nil {
				failed++
				log.Printf("notification dispatch to %s failed: %v", userID, err)
			} else {
				delivered++
			}
			mu.Unlock()
		}(recipient)
	}

	wg.Wait()
	log.Printf("notification fan-out for message %s: %d delivered, %d failed", msg.ID, delivered, failed)
}

// dispatch writes the in-app notification row and, unless the recipient is
// currently suppressed for this room, publishes a push event on the user's
// channel. The first delivered push sets the suppression marker; it stays
// until the user rejoins the room.
func (s *notificationService) dispatch(ctx context.Context, userID uuid.UUID, room *model.Room, msg *model.Message, actor *model.User, notifType model.NotificationType, text string) error {
	notification := &model.Notification{
		UserID:    userID,
		ActorID:   actor.ID,
		RoomID:    room.ID,
		MessageID: msg.ID,
		RoomSlug:  room.Slug,
		Type:      notifType,
		Message:   text,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.redisClient == nil {
		return nil
	}

	suppressed, err := s.redisClient.Exists(ctx, suppressionKey(userID, room.ID)).Result()
	if err == nil && suppressed > 0 {
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	if err := s.redisClient.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		return err
	}

	return s.redisClient.Set(ctx, suppressionKey(userID, room.ID), "1", 0).Err()
}

func (s *notificationService) ResetSuppression(ctx context.Context, userID, roomID uuid.UUID) error {
	if s.redisClient == nil {
		return nil
	}
	return s.redisClient.Del(ctx, suppressionKey(userID, roomID)).Err()
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp := dto.NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Message:   n.Message,
			RoomID:    n.RoomID,
			RoomSlug:  n.RoomSlug,
			MessageID: n.MessageID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
		if n.Actor != nil {
			resp.Actor = dto.SenderInfo{
				ID:        n.Actor.ID,
				Username:  n.Actor.Username,
				AvatarURL: n.Actor.AvatarURL,
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// UserChannel is the Redis pub/sub channel carrying one user's live
// notification pushes.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func suppressionKey(userID, roomID uuid.UUID) string {
	return fmt.Sprintf("notified:%s:%s", roomID.String(), userID.String())
}
