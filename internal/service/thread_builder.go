package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/dto"
	"github.com/johannesrosenbaum/chatilo-server/internal/model"
	"github.com/johannesrosenbaum/chatilo-server/internal/repository"
)

const (
	// DefaultMaxLevel is the nesting depth hydrated when the client does not
	// ask for one. Hard cap is model.MaxNestingLevel.
	DefaultMaxLevel = 3

	// Per-parent page sizes. Shallow levels fetch generously, deep levels are
	// clamped hard to bound response size.
	shallowChildLimit = 100
	deepChildLimit    = 5
	// Child level at or below which the shallow limit applies.
	shallowCutoff = 2

	// Total nodes fetched per Build call. The depth cap alone does not bound
	// node count on heavily replied threads.
	defaultFetchBudget = 2000
)

// ThreadBuilder assembles nested comment trees from flat parent-linked rows.
// Each level of the tree costs one query over the whole frontier of parents,
// never one query per node.
type ThreadBuilder struct {
	messages    repository.MessageRepository
	fetchBudget int
}

func NewThreadBuilder(messages repository.MessageRepository) *ThreadBuilder {
	return &ThreadBuilder{messages: messages, fetchBudget: defaultFetchBudget}
}

// Build hydrates the comment trees under the given root posts, depth-limited
// by maxLevel. Soft-deleted records are never emitted; their live descendants
// are promoted to the nearest non-deleted ancestor, after that ancestor's own
// children. Every emitted node carries a reply count: the number of live
// replies actually found when its children were fully fetched, otherwise the
// stored children_count (for "view more" below the cutoff or past a page cap).
func (b *ThreadBuilder) Build(ctx context.Context, roots []*model.Message, maxLevel int) ([]*dto.MessageResponse, error) {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	if maxLevel > model.MaxNestingLevel {
		maxLevel = model.MaxNestingLevel
	}

	nodes := make(map[uuid.UUID]*dto.MessageResponse)
	// Nearest non-deleted ancestor for every traversed message id.
	anchor := make(map[uuid.UUID]uuid.UUID)
	// Parents whose reply list was truncated by a page cap.
	truncated := make(map[uuid.UUID]bool)
	// Live nodes whose direct parent was deleted. They sort after their
	// adoptive ancestor's own children.
	promoted := make(map[uuid.UUID]bool)

	out := make([]*dto.MessageResponse, 0, len(roots))
	frontier := make([]uuid.UUID, 0, len(roots))
	for _, root := range roots {
		node := messageToNode(root)
		nodes[root.ID] = node
		anchor[root.ID] = root.ID
		out = append(out, node)
		frontier = append(frontier, root.ID)
	}

	fetched := 0
	// Anchors whose children were actually fetched at some depth. Promotion
	// can append to an anchor several depths after its own children were
	// fetched, so displayed counts are finalized only after traversal ends.
	attempted := make(map[uuid.UUID]bool)
	for depth := 0; depth < maxLevel && len(frontier) > 0; depth++ {
		if fetched >= b.fetchBudget {
			break
		}

		children, err := b.messages.FindChildren(ctx, frontier)
		if err != nil {
			return nil, err
		}
		for _, id := range frontier {
			attempted[anchor[id]] = true
		}

		perParent := make(map[uuid.UUID]int)
		next := frontier[:0:0]
		for _, child := range children {
			parentID := *child.ParentID
			if fetched >= b.fetchBudget {
				truncated[anchor[parentID]] = true
				continue
			}
			fetched++

			limit := childLimit(child.Level)
			if perParent[parentID] >= limit {
				truncated[anchor[parentID]] = true
				continue
			}
			perParent[parentID]++

			if child.IsDeleted {
				// Not emitted, but still traversed so its live descendants
				// surface under the nearest visible ancestor.
				anchor[child.ID] = anchor[parentID]
				next = append(next, child.ID)
				continue
			}

			node := messageToNode(child)
			nodes[child.ID] = node
			anchor[child.ID] = child.ID
			if anchor[parentID] != parentID {
				promoted[child.ID] = true
			}

			parentNode := nodes[anchor[parentID]]
			parentNode.Replies = append(parentNode.Replies, node)
			next = append(next, child.ID)
		}

		frontier = next
	}

	// A node whose children were fetched in full gets its displayed reply
	// count from what was actually found, not the stored counter. Nodes past
	// the depth cutoff or a page cap keep the counter for "view more".
	for id, node := range nodes {
		if attempted[id] && !truncated[id] {
			node.ReplyCount = len(node.Replies)
		}
	}

	if err := b.applyScores(ctx, nodes); err != nil {
		return nil, err
	}
	for _, node := range out {
		sortReplies(node, promoted)
	}
	return out, nil
}

func childLimit(childLevel int) int {
	if childLevel <= shallowCutoff {
		return shallowChildLimit
	}
	return deepChildLimit
}

func (b *ThreadBuilder) applyScores(ctx context.Context, nodes map[uuid.UUID]*dto.MessageResponse) error {
	ids := make([]uuid.UUID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	scores, err := b.messages.NetScores(ctx, ids)
	if err != nil {
		return err
	}
	for id, node := range nodes {
		node.NetScore = scores[id]
	}
	return nil
}

// sortReplies orders each level by creation time ascending, net score
// descending as tie-break. Nodes promoted from under a deleted comment form a
// second segment after the parent's own children, in the same order among
// themselves.
func sortReplies(node *dto.MessageResponse, promoted map[uuid.UUID]bool) {
	sort.SliceStable(node.Replies, func(i, j int) bool {
		a, b := node.Replies[i], node.Replies[j]
		if promoted[a.ID] != promoted[b.ID] {
			return !promoted[a.ID]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.NetScore > b.NetScore
	})
	for _, reply := range node.Replies {
		sortReplies(reply, promoted)
	}
}

func messageToNode(m *model.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		ID:           m.ID,
		RoomID:       m.RoomID,
		ParentID:     m.ParentID,
		ThreadRootID: m.ThreadRootID,
		Level:        m.Level,
		Type:         string(m.Type),
		Content:      m.Content,
		MediaURL:     m.MediaURL,
		Sender: dto.SenderInfo{
			ID:        m.Sender.ID,
			Username:  m.Sender.Username,
			AvatarURL: m.Sender.AvatarURL,
		},
		ReplyCount: m.ChildrenCount,
		CreatedAt:  m.CreatedAt,
	}
}
