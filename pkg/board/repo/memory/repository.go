package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-board/pkg/board"
)

// Repository implements board.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	contents     map[string]*board.Content // document_id -> content
	byPostNumber map[int64]string          // post_number -> document_id
	users        map[string]*board.User    // uid -> user
	usersByEmail map[string]string         // email -> uid
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		contents:     make(map[string]*board.Content),
		byPostNumber: make(map[int64]string),
		users:        make(map[string]*board.User),
		usersByEmail: make(map[string]string),
	}
}

// Content operations

func (r *Repository) InsertContent(ctx context.Context, content *board.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if content.DocumentID == "" {
		content.DocumentID = uuid.NewString()
	}
	if _, exists := r.contents[content.DocumentID]; exists {
		return fmt.Errorf("content %s already exists", content.DocumentID)
	}
	if _, exists := r.byPostNumber[content.PostNumber]; exists {
		return fmt.Errorf("post number %d already exists", content.PostNumber)
	}

	// Store a copy to avoid external modifications
	r.contents[content.DocumentID] = content.Clone()
	r.byPostNumber[content.PostNumber] = content.DocumentID
	return nil
}

func (r *Repository) FindContent(ctx context.Context, postNumber int64, state board.DeletionState) (*board.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byPostNumber[postNumber]
	if !exists {
		return nil, board.ErrContentNotFound
	}
	content := r.contents[id]
	if !content.State.Matches(state) {
		return nil, board.ErrContentNotFound
	}
	return content.Clone(), nil
}

func (r *Repository) UpdateContent(ctx context.Context, documentID string, patch board.ContentPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, exists := r.contents[documentID]
	if !exists {
		return board.ErrContentNotFound
	}
	patch.Apply(content)
	return nil
}

func (r *Repository) CountContents(ctx context.Context, filter board.ContentFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matching(filter)), nil
}

func (r *Repository) ListContents(ctx context.Context, filter board.ContentFilter, page board.Pagination) ([]*board.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matching(filter)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].PostNumber > matches[j].PostNumber
	})

	if page.Offset < 0 {
		return nil, fmt.Errorf("negative offset %d", page.Offset)
	}
	if page.Offset >= len(matches) {
		return []*board.Content{}, nil
	}
	end := len(matches)
	if page.Limit > 0 && page.Limit < end-page.Offset {
		end = page.Offset + page.Limit
	}

	result := make([]*board.Content, 0, end-page.Offset)
	for _, c := range matches[page.Offset:end] {
		result = append(result, c.Clone())
	}
	return result, nil
}

// matching must be called with the lock held.
func (r *Repository) matching(filter board.ContentFilter) []*board.Content {
	var result []*board.Content
	for _, c := range r.contents {
		if !c.State.Matches(filter.State) {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		result = append(result, c)
	}
	return result
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *board.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.UID]; exists {
		return board.ErrUserExists
	}
	if _, exists := r.usersByEmail[user.Email]; exists {
		return board.ErrUserExists
	}

	userCopy := *user
	r.users[user.UID] = &userCopy
	r.usersByEmail[user.Email] = user.UID
	return nil
}

func (r *Repository) GetUser(ctx context.Context, uid string) (*board.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[uid]
	if !exists || user.IsDeleted() {
		return nil, board.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *Repository) UpdateUser(ctx context.Context, uid string, patch board.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[uid]
	if !exists {
		return board.ErrUserNotFound
	}
	patch.Apply(user)
	return nil
}

var _ board.Repository = (*Repository)(nil)
