package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/dto"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/pkg/apperror"
)

// In-memory fakes standing in for the gorm repositories.

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*model.Message
	scores   map[uuid.UUID]int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: make(map[uuid.UUID]*model.Message),
		scores:   make(map[uuid.UUID]int),
	}
}

func (f *fakeMessageRepo) add(msg *model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *msg
	f.messages[cp.ID] = &cp
}

func (f *fakeMessageRepo) setScore(id uuid.UUID, score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[id] = score
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		msg.ID = id
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	cp := *msg
	f.messages[cp.ID] = &cp
	if msg.ParentID != nil {
		if parent, ok := f.messages[*msg.ParentID]; ok {
			parent.ChildrenCount++
		}
	}
	return nil
}

func (f *fakeMessageRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) FindRoots(ctx context.Context, roomID uuid.UUID, sortBy string, offset, limit int) ([]*model.Message, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var roots []*model.Message
	for _, msg := range f.messages {
		if msg.RoomID == roomID && msg.ParentID == nil && !msg.IsDeleted {
			cp := *msg
			roots = append(roots, &cp)
		}
	}

	switch sortBy {
	case "top":
		sort.SliceStable(roots, func(i, j int) bool {
			return f.scores[roots[i].ID] > f.scores[roots[j].ID]
		})
	default:
		sort.SliceStable(roots, func(i, j int) bool {
			return roots[i].CreatedAt.After(roots[j].CreatedAt)
		})
	}

	total := int64(len(roots))
	if offset >= len(roots) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(roots) {
		end = len(roots)
	}
	return roots[offset:end], total, nil
}

func (f *fakeMessageRepo) FindChildren(ctx context.Context, parentIDs []uuid.UUID) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parents := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}

	var children []*model.Message
	for _, msg := range f.messages {
		if msg.ParentID != nil && parents[*msg.ParentID] {
			cp := *msg
			children = append(children, &cp)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
	return children, nil
}

func (f *fakeMessageRepo) NetScores(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]int, len(messageIDs))
	for _, id := range messageIDs {
		out[id] = f.scores[id]
	}
	return out, nil
}

func (f *fakeMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok || msg.IsDeleted {
		return apperror.ErrNotFound
	}
	msg.IsDeleted = true
	return nil
}

type fakeRoomRepo struct {
	mu         sync.Mutex
	rooms      map[uuid.UUID]*model.Room
	members    map[uuid.UUID]map[uuid.UUID]bool
	favoriters map[uuid.UUID][]uuid.UUID
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:      make(map[uuid.UUID]*model.Room),
		members:    make(map[uuid.UUID]map[uuid.UUID]bool),
		favoriters: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeRoomRepo) addRoom(room *model.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *room
	f.rooms[cp.ID] = &cp
}

func (f *fakeRoomRepo) Create(ctx context.Context, room *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		room.ID = id
	}
	cp := *room
	f.rooms[cp.ID] = &cp
	return nil
}

func (f *fakeRoomRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (f *fakeRoomRepo) FindAll(ctx context.Context) ([]*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Room, 0, len(f.rooms))
	for _, room := range f.rooms {
		cp := *room
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRoomRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[id]
	return ok, nil
}

func (f *fakeRoomRepo) IsMember(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[roomID][userID], nil
}

func (f *fakeRoomRepo) Join(ctx context.Context, userID, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[roomID] == nil {
		f.members[roomID] = make(map[uuid.UUID]bool)
	}
	f.members[roomID][userID] = true
	return nil
}

func (f *fakeRoomRepo) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[roomID], userID)
	return nil
}

func (f *fakeRoomRepo) Favorite(ctx context.Context, userID, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.favoriters[roomID] {
		if id == userID {
			return nil
		}
	}
	f.favoriters[roomID] = append(f.favoriters[roomID], userID)
	return nil
}

func (f *fakeRoomRepo) Unfavorite(ctx context.Context, userID, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.favoriters[roomID][:0]
	for _, id := range f.favoriters[roomID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	f.favoriters[roomID] = kept
	return nil
}

func (f *fakeRoomRepo) FavoriterIDs(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.favoriters[roomID]...), nil
}

func (f *fakeRoomRepo) MemberCount(ctx context.Context, roomID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.members[roomID])), nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) addUser(user *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[cp.ID] = &cp
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		user.ID = id
	}
	cp := *user
	f.users[cp.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[cp.ID] = &cp
	return nil
}

type fakeVoteRepo struct {
	mu    sync.Mutex
	votes map[uuid.UUID]map[uuid.UUID]int
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{votes: make(map[uuid.UUID]map[uuid.UUID]int)}
}

func (f *fakeVoteRepo) Set(ctx context.Context, userID, messageID uuid.UUID, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.votes[messageID] == nil {
		f.votes[messageID] = make(map[uuid.UUID]int)
	}
	if value == 0 {
		delete(f.votes[messageID], userID)
		return nil
	}
	f.votes[messageID][userID] = value
	return nil
}

func (f *fakeVoteRepo) NetScore(ctx context.Context, messageID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	net := 0
	for _, v := range f.votes[messageID] {
		net += v
	}
	return net, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		n.ID = id
	}
	cp := *n
	f.notifications = append(f.notifications, &cp)
	return nil
}

func (f *fakeNotificationRepo) forUser(userID uuid.UUID) []*model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotificationRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.forUser(userID) {
		out = append(out, *n)
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// fakeNotifier records fan-out invocations for the ingestion tests.
type fakeNotifier struct {
	mu      sync.Mutex
	fanOuts chan *model.Message
	resets  []uuid.UUID
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fanOuts: make(chan *model.Message, 16)}
}

func (f *fakeNotifier) FanOut(ctx context.Context, room *model.Room, msg *model.Message, actor *model.User) {
	f.fanOuts <- msg
}

func (f *fakeNotifier) ResetSuppression(ctx context.Context, userID, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, userID)
	return nil
}

func (f *fakeNotifier) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resets)
}

func (f *fakeNotifier) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]dto.NotificationResponse, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkAsRead(ctx context.Context, id uuid.UUID) error        { return nil }
func (f *fakeNotifier) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error { return nil }
func (f *fakeNotifier) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}
