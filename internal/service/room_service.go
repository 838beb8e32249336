package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/dto"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/internal/repository"
	"github.com/johannesrosenbaum/chatilo-server/pkg/apperror"
)

type RoomService interface {
	CreateRoom(ctx context.Context, userID uuid.UUID, req dto.CreateRoomRequest) (*dto.RoomResponse, error)
	NearbyRooms(ctx context.Context, lat, lng float64) ([]dto.RoomResponse, error)
	Join(ctx context.Context, userID, roomID uuid.UUID) error
	Leave(ctx context.Context, userID, roomID uuid.UUID) error
	Favorite(ctx context.Context, userID, roomID uuid.UUID) error
	Unfavorite(ctx context.Context, userID, roomID uuid.UUID) error
}

type roomService struct {
	roomRepo            repository.RoomRepository
	messageRepo         repository.MessageRepository
	notificationService NotificationService
	geocoder            Geocoder
	welcomeService      *WelcomeService
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	notificationService NotificationService,
	geocoder Geocoder,
	welcomeService *WelcomeService,
) RoomService {
	return &roomService{
		roomRepo:            roomRepo,
		messageRepo:         messageRepo,
		notificationService: notificationService,
		geocoder:            geocoder,
		welcomeService:      welcomeService,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, userID uuid.UUID, req dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	radius := req.RadiusMeters
	if radius == 0 {
		radius = 2000
	}

	room := &model.Room{
		Name:         req.Name,
		Slug:         slugify(req.Name),
		Description:  req.Description,
		CreatorID:    userID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: radius,
	}

	if s.geocoder != nil {
		locality, err := s.geocoder.ReverseGeocode(ctx, req.Latitude, req.Longitude)
		if err != nil {
			log.Printf("reverse geocode for room %q failed: %v", req.Name, err)
		} else {
			room.Locality = locality
		}
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	// Creator is a member from the start.
	if err := s.roomRepo.Join(ctx, userID, room.ID); err != nil {
		return nil, err
	}

	if s.welcomeService != nil {
		go s.postWelcomeMessage(room, userID)
	}

	resp := roomToResponse(room, 0)
	resp.MemberCount = 1
	return &resp, nil
}

// postWelcomeMessage asks the LLM for a regional greeting and ingests it as
// a system root post. Runs detached from room creation; failures are logged
// and the room simply starts empty.
func (s *roomService) postWelcomeMessage(room *model.Room, creatorID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := s.welcomeService.GenerateWelcome(ctx, room.Name, room.Locality)
	if err != nil {
		log.Printf("welcome message generation for room %s failed: %v", room.ID, err)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		log.Printf("welcome message for room %s: %v", room.ID, err)
		return
	}
	msg := &model.Message{
		ID:           id,
		RoomID:       room.ID,
		SenderID:     creatorID,
		ThreadRootID: id,
		Level:        0,
		Type:         model.MessageTypeSystem,
		Content:      text,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		log.Printf("failed to post welcome message for room %s: %v", room.ID, err)
	}
}

func (s *roomService) NearbyRooms(ctx context.Context, lat, lng float64) ([]dto.RoomResponse, error) {
	rooms, err := s.roomRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RoomResponse, 0)
	for _, room := range rooms {
		distance := Haversine(lat, lng, room.Latitude, room.Longitude)
		if distance > float64(room.RadiusMeters) {
			continue
		}
		resp := roomToResponse(room, distance)
		resp.MemberCount, _ = s.roomRepo.MemberCount(ctx, room.ID)
		out = append(out, resp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out, nil
}

func (s *roomService) Join(ctx context.Context, userID, roomID uuid.UUID) error {
	exists, err := s.roomRepo.Exists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("room not found: %w", apperror.ErrNotFound)
	}

	if err := s.roomRepo.Join(ctx, userID, roomID); err != nil {
		return err
	}

	// Joining clears any push suppression so the next new post notifies
	// the user again.
	if err := s.notificationService.ResetSuppression(ctx, userID, roomID); err != nil {
		log.Printf("failed to reset notification suppression for user %s in room %s: %v", userID, roomID, err)
	}
	return nil
}

func (s *roomService) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	return s.roomRepo.Leave(ctx, userID, roomID)
}

func (s *roomService) Favorite(ctx context.Context, userID, roomID uuid.UUID) error {
	exists, err := s.roomRepo.Exists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("room not found: %w", apperror.ErrNotFound)
	}
	return s.roomRepo.Favorite(ctx, userID, roomID)
}

func (s *roomService) Unfavorite(ctx context.Context, userID, roomID uuid.UUID) error {
	return s.roomRepo.Unfavorite(ctx, userID, roomID)
}

func roomToResponse(room *model.Room, distance float64) dto.RoomResponse {
	return dto.RoomResponse{
		ID:             room.ID,
		Name:           room.Name,
		Slug:           room.Slug,
		Description:    room.Description,
		Locality:       room.Locality,
		Latitude:       room.Latitude,
		Longitude:      room.Longitude,
		RadiusMeters:   room.RadiusMeters,
		DistanceMeters: distance,
		CreatedAt:      room.CreatedAt,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	// Short random suffix keeps slugs unique without a retry loop.
	return fmt.Sprintf("%s-%s", slug, uuid.NewString()[:8])
}
