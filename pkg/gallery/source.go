package gallery

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/matzehuels/masonry/pkg/errors"
)

// DefaultPageSize is the page size used by sources when none is configured.
const DefaultPageSize = 20

// Page is one page of items. Next is the opaque token for the following
// page; the empty string marks the end of the list.
type Page struct {
	Items []MediaItem `json:"items"`
	Next  string      `json:"next,omitempty"`
}

// Source is a paginated supplier of gallery items.
type Source interface {
	FetchInitialPage(ctx context.Context) (Page, error)
	FetchPage(ctx context.Context, token string) (Page, error)
}

// Deleter is implemented by sources that can remove files.
type Deleter interface {
	DeleteFile(ctx context.Context, fileID int64) error
}

// CredentialProvider supplies the bearer token for authenticated requests.
// An empty token means the request is sent anonymously.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a CredentialProvider with a fixed token.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// MemorySource serves pages from an in-memory slice. The page token is the
// decimal offset of the next page.
type MemorySource struct {
	mu       sync.RWMutex
	items    []MediaItem
	pageSize int
}

// NewMemorySource creates a source over a copy of items. A non-positive
// pageSize selects DefaultPageSize.
func NewMemorySource(items []MediaItem, pageSize int) *MemorySource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MemorySource{items: slices.Clone(items), pageSize: pageSize}
}

// FetchInitialPage returns the first page.
func (s *MemorySource) FetchInitialPage(ctx context.Context) (Page, error) {
	return s.page(ctx, 0)
}

// FetchPage returns the page starting at the offset encoded in token.
func (s *MemorySource) FetchPage(ctx context.Context, token string) (Page, error) {
	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return Page{}, errors.New(errors.ErrCodeInvalidPageToken, "invalid page token %q", token)
	}
	return s.page(ctx, offset)
}

func (s *MemorySource) page(ctx context.Context, offset int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.items) {
		return Page{Items: []MediaItem{}}, nil
	}
	end := min(offset+s.pageSize, len(s.items))
	p := Page{Items: slices.Clone(s.items[offset:end])}
	if end < len(s.items) {
		p.Next = strconv.Itoa(end)
	}
	return p, nil
}

// Add appends items to the end of the source.
func (s *MemorySource) Add(items ...MediaItem) {
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
}

// Len returns the number of items in the source.
func (s *MemorySource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// DeleteFile removes every item with the given file ID.
func (s *MemorySource) DeleteFile(ctx context.Context, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(it MediaItem) bool { return it.FileID == fileID })
	if len(s.items) == n {
		return errors.New(errors.ErrCodeFileNotFound, "file %d not found", fileID)
	}
	return nil
}

// FetchAll drains a source from its first page, stopping after limit items
// when limit is positive. As in Feed, a page whose Next repeats the token
// it was fetched with ends the list.
func FetchAll(ctx context.Context, src Source, limit int) ([]MediaItem, error) {
	page, err := src.FetchInitialPage(ctx)
	if err != nil {
		return nil, err
	}
	items := slices.Clone(page.Items)
	for page.Next != "" && (limit <= 0 || len(items) < limit) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token := page.Next
		if page, err = src.FetchPage(ctx, token); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if page.Next == token {
			break
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var (
	_ Source  = (*MemorySource)(nil)
	_ Deleter = (*MemorySource)(nil)
)
