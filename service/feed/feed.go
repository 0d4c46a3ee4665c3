package feed

import (
	"sync"

	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/service/pagination"
	"github.com/phamvanchien/social-web/service/transport"
)

// API is the slice of the REST client the feed consumes.
type API interface {
	ListPosts(page, size int, keyword string) (*models.Page[models.Post], error)
	GetPostDetail(encodedID string) (*models.Post, error)
	CreatePost(req *models.CreatePostRequest) error
}

// Feed holds the location-scoped post list with the same cursor
// discipline as the comment thread: sequential page fetches, dedupe by
// post ID, failures leave loaded posts untouched.
type Feed struct {
	api API

	mu      sync.Mutex
	keyword string
	gen     int // bumped on keyword change to discard stale fetch results
	posts   []models.Post
	total   int
	cursor  pagination.Cursor
}

func NewFeed(api API) *Feed {
	return &Feed{api: api}
}

// Refresh discards the list and fetches page 1. A concurrent fetch makes
// this a no-op.
func (f *Feed) Refresh() error {
	f.mu.Lock()
	if !f.cursor.Begin() {
		f.mu.Unlock()
		return nil
	}
	keyword, gen := f.keyword, f.gen
	f.mu.Unlock()

	return f.fetch(1, keyword, gen, true)
}

// LoadMore fetches the next page; no-op while loading or when the server
// reported no more pages.
func (f *Feed) LoadMore() error {
	f.mu.Lock()
	if !f.cursor.HasMore() || !f.cursor.Begin() {
		f.mu.Unlock()
		return nil
	}
	page := f.cursor.Page + 1
	keyword, gen := f.keyword, f.gen
	f.mu.Unlock()

	return f.fetch(page, keyword, gen, false)
}

// SetKeyword changes the search filter and refetches from page 1. An
// in-flight fetch for the old filter is discarded, not joined.
func (f *Feed) SetKeyword(keyword string) error {
	f.mu.Lock()
	if keyword == f.keyword {
		f.mu.Unlock()
		return nil
	}
	f.keyword = keyword
	f.gen++
	f.posts = nil
	f.cursor.Reset()
	f.cursor.Begin()
	gen := f.gen
	f.mu.Unlock()

	return f.fetch(1, keyword, gen, true)
}

func (f *Feed) fetch(page int, keyword string, gen int, replace bool) error {
	res, err := f.api.ListPosts(page, transport.PostPageSize, keyword)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		// filter changed underneath this fetch; the cursor now belongs
		// to the newer fetch, so leave it alone
		return nil
	}
	f.cursor.Finish()
	if err != nil {
		return err
	}
	if replace {
		f.posts = nil
	}
	for _, p := range res.Items {
		if !containsPost(f.posts, p.ID) {
			f.posts = append(f.posts, p)
		}
	}
	f.total = res.Total
	f.cursor.Complete(page, res.TotalPage)
	return nil
}

// Publish uploads a new post. The feed does not insert it locally; the
// next Refresh picks it up in server order.
func (f *Feed) Publish(req *models.CreatePostRequest) error {
	return f.api.CreatePost(req)
}

// Detail fetches one post by its share link ID.
func (f *Feed) Detail(encodedID string) (*models.Post, error) {
	return f.api.GetPostDetail(encodedID)
}

// Posts returns a copy of the loaded posts plus the hasMore flag.
func (f *Feed) Posts() ([]models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := make([]models.Post, len(f.posts))
	copy(posts, f.posts)
	return posts, f.cursor.HasMore()
}

// Total returns the server-reported post total for the current filter.
func (f *Feed) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func containsPost(list []models.Post, id uint) bool {
	for i := range list {
		if list[i].ID == id {
			return true
		}
	}
	return false
}
