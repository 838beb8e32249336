package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreadMessage(t *testing.T, roomID uuid.UUID, parent *model.Message, content string, createdAt time.Time) *model.Message {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	msg := &model.Message{
		ID:        id,
		RoomID:    roomID,
		SenderID:  uuid.New(),
		Type:      model.MessageTypeText,
		Content:   content,
		CreatedAt: createdAt,
	}
	if parent == nil {
		msg.ThreadRootID = id
		msg.Level = 0
	} else {
		pid := parent.ID
		msg.ParentID = &pid
		msg.ThreadRootID = parent.ThreadRootID
		msg.Level = parent.Level + 1
	}
	return msg
}

func TestBuildNestedTree(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root post", base)
	c1 := newThreadMessage(t, roomID, post, "first comment", base.Add(time.Minute))
	c2 := newThreadMessage(t, roomID, c1, "nested reply", base.Add(2*time.Minute))

	post.ChildrenCount = 1
	c1.ChildrenCount = 1
	repo.add(post)
	repo.add(c1)
	repo.add(c2)

	trees, err := NewThreadBuilder(repo).Build(context.Background(), []*model.Message{post}, 3)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	root := trees[0]
	assert.Equal(t, post.ID, root.ID)
	assert.Equal(t, post.ID, root.ThreadRootID)
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, 1, root.ReplyCount)

	require.Len(t, root.Replies, 1)
	gotC1 := root.Replies[0]
	assert.Equal(t, c1.ID, gotC1.ID)
	assert.Equal(t, 1, gotC1.Level)
	assert.Equal(t, post.ID, gotC1.ThreadRootID)
	assert.Equal(t, 1, gotC1.ReplyCount)

	require.Len(t, gotC1.Replies, 1)
	gotC2 := gotC1.Replies[0]
	assert.Equal(t, c2.ID, gotC2.ID)
	assert.Equal(t, 2, gotC2.Level)
	assert.Equal(t, post.ID, gotC2.ThreadRootID)
	assert.Empty(t, gotC2.Replies)
}

func TestBuildStopsAtMaxLevel(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root", base)
	level1 := newThreadMessage(t, roomID, post, "level 1", base.Add(time.Minute))
	level2 := newThreadMessage(t, roomID, level1, "level 2", base.Add(2*time.Minute))
	level3 := newThreadMessage(t, roomID, level2, "level 3", base.Add(3*time.Minute))

	post.ChildrenCount = 1
	level1.ChildrenCount = 1
	level2.ChildrenCount = 1
	repo.add(post)
	repo.add(level1)
	repo.add(level2)
	repo.add(level3)

	trees, err := NewThreadBuilder(repo).Build(context.Background(), []*model.Message{post}, 2)
	require.NoError(t, err)

	root := trees[0]
	require.Len(t, root.Replies, 1)
	require.Len(t, root.Replies[0].Replies, 1)

	// level2 sits at the cutoff: its replies are not fetched, but the stored
	// children count is still reported so clients can offer "view more".
	cutoff := root.Replies[0].Replies[0]
	assert.Equal(t, level2.ID, cutoff.ID)
	assert.Empty(t, cutoff.Replies)
	assert.Equal(t, 1, cutoff.ReplyCount)
}

func TestBuildPromotesChildrenOfDeleted(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root", base)
	deleted := newThreadMessage(t, roomID, post, "gone", base.Add(time.Minute))
	deleted.IsDeleted = true
	orphan := newThreadMessage(t, roomID, deleted, "still here", base.Add(2*time.Minute))

	post.ChildrenCount = 1
	deleted.ChildrenCount = 1
	repo.add(post)
	repo.add(deleted)
	repo.add(orphan)

	trees, err := NewThreadBuilder(repo).Build(context.Background(), []*model.Message{post}, 3)
	require.NoError(t, err)

	root := trees[0]
	// The deleted comment is never emitted; its live child is promoted to
	// the nearest visible ancestor.
	require.Len(t, root.Replies, 1)
	assert.Equal(t, orphan.ID, root.Replies[0].ID)
	assert.Equal(t, 1, root.ReplyCount)

	for _, reply := range root.Replies {
		assert.NotEqual(t, deleted.ID, reply.ID)
		assert.NotEqual(t, "gone", reply.Content)
	}
}

func TestBuildPromotedOrphansSortAfterDirectChildren(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root", base)
	deleted := newThreadMessage(t, roomID, post, "gone", base.Add(1*time.Minute))
	deleted.IsDeleted = true
	// Created before the direct child, but still sorts behind it.
	earlyOrphan := newThreadMessage(t, roomID, deleted, "early orphan", base.Add(2*time.Minute))
	lateOrphan := newThreadMessage(t, roomID, deleted, "late orphan", base.Add(4*time.Minute))
	direct := newThreadMessage(t, roomID, post, "direct child", base.Add(3*time.Minute))

	post.ChildrenCount = 2
	deleted.ChildrenCount = 2
	for _, msg := range []*model.Message{post, deleted, earlyOrphan, lateOrphan, direct} {
		repo.add(msg)
	}

	trees, err := NewThreadBuilder(repo).Build(context.Background(), []*model.Message{post}, 3)
	require.NoError(t, err)

	replies := trees[0].Replies
	require.Len(t, replies, 3)
	// Direct children come first regardless of creation time; the adopted
	// orphans follow in their own creation order.
	assert.Equal(t, direct.ID, replies[0].ID)
	assert.Equal(t, earlyOrphan.ID, replies[1].ID)
	assert.Equal(t, lateOrphan.ID, replies[2].ID)
}

func TestBuildReplyCountExcludesDeleted(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root", base)
	live := newThreadMessage(t, roomID, post, "live", base.Add(time.Minute))
	deleted := newThreadMessage(t, roomID, post, "deleted", base.Add(2*time.Minute))
	deleted.IsDeleted = true

	post.ChildrenCount = 2
	repo.add(post)
	repo.add(live)
	repo.add(deleted)

	trees, err := NewThreadBuilder(repo).Build(context.Background(), []*model.Message{post}, 3)
	require.NoError(t, err)

	root := trees[0]
	require.Len(t, root.Replies, 1)
	assert.Equal(t, live.ID, root.Replies[0].ID)
	assert.Equal(t, 1, root.ReplyCount)
}

func TestBuildOrdering(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root", base)

	// Distinct timestamps: creation order wins regardless of score.
	first := newThreadMessage(t, roomID, post, "first", base.Add(1*time.Minute))
	second := newThreadMessage(t, roomID, post, "second", base.Add(2*time.Minute))
	third := newThreadMessage(t, roomID, post, "third", base.Add(3*time.Minute))

	// Equal timestamps: score breaks the tie, descending.
	tied := base.Add(4 * time.Minute)
	tieLow := newThreadMessage(t, roomID, post, "tie low", tied)
	tieHigh := newThreadMessage(t, roomID, post, "tie high", tied)

	post.ChildrenCount = 5
	for _, msg := range []*model.Message{post, first, second, third, tieLow, tieHigh} {
		repo.add(msg)
	}
	repo.setScore(first.ID, 5)
	repo.setScore(second.ID, 9)
	repo.setScore(third.ID, 1)
	repo.setScore(tieLow.ID, 2)
	repo.setScore(tieHigh.ID, 7)

	trees, err := NewThreadBuilder(repo).Build(context.Background(), []*model.Message{post}, 3)
	require.NoError(t, err)

	replies := trees[0].Replies
	require.Len(t, replies, 5)
	assert.Equal(t, first.ID, replies[0].ID)
	assert.Equal(t, second.ID, replies[1].ID)
	assert.Equal(t, third.ID, replies[2].ID)
	assert.Equal(t, tieHigh.ID, replies[3].ID)
	assert.Equal(t, tieLow.ID, replies[4].ID)
}

func TestBuildRespectsFetchBudget(t *testing.T) {
	repo := newFakeMessageRepo()
	roomID := uuid.New()
	base := time.Now()

	post := newThreadMessage(t, roomID, nil, "root", base)
	post.ChildrenCount = 10
	repo.add(post)
	for i := 0; i < 10; i++ {
		child := newThreadMessage(t, roomID, post, "child", base.Add(time.Duration(i+1)*time.Second))
		repo.add(child)
	}

	builder := NewThreadBuilder(repo)
	builder.fetchBudget = 4

	trees, err := builder.Build(context.Background(), []*model.Message{post}, 3)
	require.NoError(t, err)

	root := trees[0]
	assert.Len(t, root.Replies, 4)
	// Truncated listing falls back to the stored counter.
	assert.Equal(t, 10, root.ReplyCount)
}
