package board

import (
	"fmt"
	"time"
)

// Sequence names, one per collection that carries an allocated key.
const (
	SequenceContents = "contents"
	SequenceUsers    = "users"
)

// Category classifies a content post.
type Category string

const (
	CategoryApply    Category = "apply"
	CategoryNotice   Category = "notice"
	CategoryCardNews Category = "cardnews"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryApply, CategoryNotice, CategoryCardNews}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryApply, CategoryNotice, CategoryCardNews:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// DeletionState tracks the soft-delete lifecycle of a document.
// The only transition is active -> soft_deleted.
type DeletionState string

const (
	StateActive      DeletionState = "active"
	StateSoftDeleted DeletionState = "soft_deleted"
)

// IsValid reports whether s is a known state.
func (s DeletionState) IsValid() bool {
	return s == StateActive || s == StateSoftDeleted
}

// Matches reports whether a document in state s passes a filter on want.
// An empty want matches every state.
func (s DeletionState) Matches(want DeletionState) bool {
	return want == "" || s == want
}

// StateFromDeleted maps the persisted is_deleted flag to a DeletionState.
func StateFromDeleted(deleted bool) DeletionState {
	if deleted {
		return StateSoftDeleted
	}
	return StateActive
}

// Content is a post on the board.
type Content struct {
	DocumentID string        `json:"content_id"`
	PostNumber int64         `json:"post_number"`
	Category   Category      `json:"category"`
	Title      string        `json:"title"`
	Contents   string        `json:"contents"`
	Images     []string      `json:"images"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	State      DeletionState `json:"-"`
}

// IsDeleted reports whether the content has been soft deleted.
func (c *Content) IsDeleted() bool {
	return c.State == StateSoftDeleted
}

// Clone returns a deep copy of c.
func (c *Content) Clone() *Content {
	cp := *c
	if c.Images != nil {
		cp.Images = append([]string(nil), c.Images...)
	}
	return &cp
}

// FirstImage returns the first image URL, or "" when there is none.
func (c *Content) FirstImage() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0]
}

// ContentSummary is the listing view of a content.
type ContentSummary struct {
	DocumentID string   `json:"content_id"`
	PostNumber int64    `json:"post_number"`
	Title      string   `json:"title"`
	FirstImage string   `json:"first_image"`
	Category   Category `json:"category"`
}

// Summarize builds the listing view of c.
func Summarize(c *Content) ContentSummary {
	return ContentSummary{
		DocumentID: c.DocumentID,
		PostNumber: c.PostNumber,
		Title:      c.Title,
		FirstImage: c.FirstImage(),
		Category:   c.Category,
	}
}

// ContentPage is one page of a listing.
type ContentPage struct {
	Items []ContentSummary `json:"data"`
	Count int              `json:"count"`
	Total int              `json:"total"`
}

// ContentFilter is a compound equality filter over contents.
// Zero-valued fields do not restrict the result.
type ContentFilter struct {
	State    DeletionState
	Category Category
}

// Pagination selects a window of an ordered result.
type Pagination struct {
	Offset int
	Limit  int
}

// ContentPatch describes a partial update. Nil fields are left unchanged.
// PostNumber and CreatedAt cannot be patched.
type ContentPatch struct {
	Category  *Category
	Title     *string
	Contents  *string
	Images    []string
	State     *DeletionState
	UpdatedAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p ContentPatch) IsEmpty() bool {
	return p.Category == nil && p.Title == nil && p.Contents == nil &&
		p.Images == nil && p.State == nil && p.UpdatedAt == nil
}

// Apply merges the patch into c.
func (p ContentPatch) Apply(c *Content) {
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Contents != nil {
		c.Contents = *p.Contents
	}
	if p.Images != nil {
		c.Images = append([]string(nil), p.Images...)
	}
	if p.State != nil {
		c.State = *p.State
	}
	if p.UpdatedAt != nil {
		c.UpdatedAt = *p.UpdatedAt
	}
}

// User mirrors an account held by the external identity service.
type User struct {
	UID       string        `json:"uid"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	IsAdmin   bool          `json:"is_admin"`
	IsActive  bool          `json:"is_active"`
	State     DeletionState `json:"-"`
}

// IsDeleted reports whether the user has been soft deleted.
func (u *User) IsDeleted() bool {
	return u.State == StateSoftDeleted
}

// UserPatch describes a partial user update. Nil fields are left unchanged.
type UserPatch struct {
	Name      *string
	IsAdmin   *bool
	IsActive  *bool
	State     *DeletionState
	UpdatedAt *time.Time
}

// Apply merges the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.State != nil {
		u.State = *p.State
	}
	if p.UpdatedAt != nil {
		u.UpdatedAt = *p.UpdatedAt
	}
}

// ImageFile is an uploaded image held in memory.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
