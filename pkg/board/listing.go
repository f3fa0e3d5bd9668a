package board

import (
	"context"
	"fmt"
	"math"
)

// ContentLister runs paginated, filtered content listings.
//
// Pages are addressed by offset: every request re-scans the skipped rows,
// which is fine at board volumes. The total comes from a separate count over
// the same filter and may briefly disagree with the page under concurrent
// writes.
type ContentLister struct {
	store ContentStore
}

// NewContentLister creates a lister over store.
func NewContentLister(store ContentStore) *ContentLister {
	return &ContentLister{store: store}
}

// List returns page (1-based) of at most limit summaries matching filter,
// newest post first, together with the total number of matches.
func (l *ContentLister) List(ctx context.Context, filter ContentFilter, page, limit int) (*ContentPage, error) {
	if page < 1 {
		return nil, NewValidationError("page", "must be greater than 0")
	}
	if limit < 1 {
		return nil, NewValidationError("limit", "must be greater than 0")
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, NewValidationError("category", fmt.Sprintf("must be one of %v", Categories))
	}

	total, err := l.store.CountContents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count contents: %w", err)
	}

	items := []ContentSummary{}
	// a page whose offset does not fit in an int lies past every match
	if page-1 > math.MaxInt/limit {
		return &ContentPage{Items: items, Total: total}, nil
	}

	contents, err := l.store.ListContents(ctx, filter, Pagination{
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}

	for _, c := range contents {
		items = append(items, Summarize(c))
	}

	return &ContentPage{
		Items: items,
		Count: len(items),
		Total: total,
	}, nil
}
