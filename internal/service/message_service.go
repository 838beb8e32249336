package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"

	"github.com/johannesrosenbaum/chatilo-server/internal/dto"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/internal/repository"
	"github.com/johannesrosenbaum/chatilo-server/pkg/apperror"
)

type MessageService interface {
	CreateMessage(ctx context.Context, userID, roomID uuid.UUID, req dto.CreateMessageRequest) (*dto.MessageResponse, error)
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, filter dto.MessageFilter) (*dto.PaginatedMessageResponse, error)
	DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) error
	Vote(ctx context.Context, userID, messageID uuid.UUID, value int) (int, error)
}

type messageService struct {
	messageRepo         repository.MessageRepository
	roomRepo            repository.RoomRepository
	userRepo            repository.UserRepository
	voteRepo            repository.VoteRepository
	treeBuilder         *ThreadBuilder
	notificationService NotificationService
	searchService       SearchService
	redisClient         *redis.Client
	sanitizer           *bluemonday.Policy
	rateLimitGlobal     time.Duration
	rateLimitMessage    time.Duration
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	voteRepo repository.VoteRepository,
	treeBuilder *ThreadBuilder,
	notificationService NotificationService,
	searchService SearchService,
	redisClient *redis.Client,
	rateLimitGlobal, rateLimitMessage time.Duration,
) MessageService {
	return &messageService{
		messageRepo:         messageRepo,
		roomRepo:            roomRepo,
		userRepo:            userRepo,
		voteRepo:            voteRepo,
		treeBuilder:         treeBuilder,
		notificationService: notificationService,
		searchService:       searchService,
		redisClient:         redisClient,
		sanitizer:           bluemonday.StrictPolicy(),
		rateLimitGlobal:     rateLimitGlobal,
		rateLimitMessage:    rateLimitMessage,
	}
}

func (s *messageService) CreateMessage(ctx context.Context, userID, roomID uuid.UUID, req dto.CreateMessageRequest) (*dto.MessageResponse, error) {
	// Global cooldown first, then the per-message one. A failed second check
	// rolls the first back so the user is not double-penalized.
	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, userID, "global", s.rateLimitGlobal)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := GetRateLimitTTL(ctx, s.redisClient, userID, "global")
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("you are doing that too fast. Please wait %.0f seconds", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	allowed, err = CheckAndSetRateLimit(ctx, s.redisClient, userID, "message", s.rateLimitMessage)
	if err != nil {
		_ = ClearRateLimit(ctx, s.redisClient, userID, "global")
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		_ = ClearRateLimit(ctx, s.redisClient, userID, "global")
		ttl, _ := GetRateLimitTTL(ctx, s.redisClient, userID, "message")
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("you can only post every %.0f seconds. Please wait %.0f seconds", s.rateLimitMessage.Seconds(), ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	creationFailed := true
	defer func() {
		if creationFailed {
			_ = ClearRateLimit(ctx, s.redisClient, userID, "global")
			_ = ClearRateLimit(ctx, s.redisClient, userID, "message")
		}
	}()

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", apperror.ErrNotFound)
	}

	isMember, err := s.roomRepo.IsMember(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("join the room before posting: %w", apperror.ErrForbidden)
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" {
		return nil, fmt.Errorf("content must not be empty: %w", apperror.ErrInvalidInput)
	}

	msgType := model.MessageType(req.Type)
	if msgType == "" {
		msgType = model.MessageTypeText
	}

	msg := &model.Message{
		RoomID:   roomID,
		SenderID: userID,
		Type:     msgType,
		Content:  content,
	}
	if req.MediaURL != "" {
		msg.MediaURL = &req.MediaURL
	}

	if req.ParentMessageID != "" {
		parentID, err := uuid.Parse(req.ParentMessageID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent message id: %w", apperror.ErrInvalidInput)
		}
		parent, err := s.messageRepo.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("parent message not found: %w", apperror.ErrNotFound)
		}
		if parent.IsDeleted {
			return nil, fmt.Errorf("parent message not found: %w", apperror.ErrNotFound)
		}
		if parent.RoomID != roomID {
			return nil, fmt.Errorf("parent message belongs to another room: %w", apperror.ErrBadRequest)
		}
		if parent.Level+1 > model.MaxNestingLevel {
			return nil, fmt.Errorf("replies are limited to %d levels: %w", model.MaxNestingLevel, apperror.ErrDepthExceeded)
		}
		// Thread root is inherited, never recomputed: every reply at any
		// depth shares the root post's id.
		msg.ParentID = &parentID
		msg.ThreadRootID = parent.ThreadRootID
		msg.Level = parent.Level + 1
	} else {
		// Root post: the id doubles as the thread root, assigned before the
		// insert so a single write establishes the invariant.
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		msg.ID = id
		msg.ThreadRootID = id
		msg.Level = 0
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	sender, err := s.userRepo.FindByID(ctx, userID)
	if err == nil {
		msg.Sender = *sender
	}

	creationFailed = false

	// Fan-out and indexing are detached from the request path: their
	// failures are logged, never surfaced to the poster.
	go func() {
		bg := context.Background()
		if sender != nil {
			s.notificationService.FanOut(bg, room, msg, sender)
		}
		if s.searchService != nil {
			if err := s.searchService.IndexMessage(msg); err != nil {
				log.Printf("failed to index message %s: %v", msg.ID, err)
			}
		}
	}()

	return messageToNode(msg), nil
}

func (s *messageService) GetRoomMessages(ctx context.Context, roomID uuid.UUID, filter dto.MessageFilter) (*dto.PaginatedMessageResponse, error) {
	exists, err := s.roomRepo.Exists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("room not found: %w", apperror.ErrNotFound)
	}

	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = 10
	}
	if filter.SortBy == "" {
		filter.SortBy = "latest"
	}
	if filter.MaxLevel == 0 {
		filter.MaxLevel = DefaultMaxLevel
	}

	offset := (filter.Page - 1) * filter.Limit
	roots, total, err := s.messageRepo.FindRoots(ctx, roomID, filter.SortBy, offset, filter.Limit)
	if err != nil {
		return nil, err
	}

	trees, err := s.treeBuilder.Build(ctx, roots, filter.MaxLevel)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}

	return &dto.PaginatedMessageResponse{
		Data: trees,
		Meta: dto.PaginationMeta{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return fmt.Errorf("only the sender can delete a message: %w", apperror.ErrForbidden)
	}
	if err := s.messageRepo.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	if s.searchService != nil {
		go func() {
			if err := s.searchService.DeleteMessage(messageID.String()); err != nil {
				log.Printf("failed to remove message %s from search index: %v", messageID, err)
			}
		}()
	}
	return nil
}

func (s *messageService) Vote(ctx context.Context, userID, messageID uuid.UUID, value int) (int, error) {
	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if msg.IsDeleted {
		return 0, apperror.ErrNotFound
	}

	if err := s.voteRepo.Set(ctx, userID, messageID, value); err != nil {
		return 0, err
	}
	return s.voteRepo.NetScore(ctx, messageID)
}
