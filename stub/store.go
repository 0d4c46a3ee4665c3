package stub

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/phamvanchien/social-web/cmd/models"
)

// ErrNotFound is returned for unknown IDs.
var ErrNotFound = errors.New("not found")

type commentRecord struct {
	id        uint
	postID    uint
	parentID  *uint
	userID    uint
	content   string
	createdAt time.Time
	likes     map[uint]bool
}

type postRecord struct {
	id        uint
	userID    uint
	content   string
	scope     int
	createdAt time.Time
	files     []models.PostFile
	likes     map[uint]bool
	shares    int
	latitude  *float64
	longitude *float64
}

type userRecord struct {
	id        uint
	email     string
	firstName string
	lastName  string
	avatar    string
	latitude  float64
	longitude float64
}

// Store is the stub backend's in-memory state. Good enough for local
// development and integration tests; nothing survives a restart.
type Store struct {
	mu        sync.Mutex
	nextID    uint
	users     map[uint]*userRecord
	posts     []*postRecord
	comments  []*commentRecord
	provinces []models.Province
	wards     []models.Ward
}

func NewStore() *Store {
	s := &Store{users: make(map[uint]*userRecord)}
	s.seedRegions()
	return s
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// FindOrCreateUser logs a user in by email, creating the account on
// first sight. The stub accepts any password.
func (s *Store) FindOrCreateUser(email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.email == email {
			return userView(u)
		}
	}

	name := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		name = email[:at]
	}
	u := &userRecord{id: s.id(), email: email, firstName: name}
	s.users[u.id] = u
	return userView(u)
}

func (s *Store) GetUser(id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return userView(u), nil
}

func (s *Store) UpdateLocation(userID uint, lat, long float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.latitude = lat
	u.longitude = long
	return nil
}

func (s *Store) SetAvatar(userID uint, url string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.avatar = url
	return userView(u), nil
}

// CreatePost stores a post and returns its feed representation.
func (s *Store) CreatePost(userID uint, content string, scope int, lat, long *float64, files []models.PostFile) *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &postRecord{
		id:        s.id(),
		userID:    userID,
		content:   content,
		scope:     scope,
		createdAt: time.Now(),
		files:     files,
		likes:     make(map[uint]bool),
		latitude:  lat,
		longitude: long,
	}
	for i := range p.files {
		p.files[i].ID = s.id()
	}
	s.posts = append(s.posts, p)
	return s.postView(p, userID)
}

// ListPosts returns one newest-first page, optionally filtered by a
// keyword in the content.
func (s *Store) ListPosts(viewerID uint, page, size int, keyword string) *models.Page[models.Post] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagePosts(viewerID, page, size, func(p *postRecord) bool {
		return keyword == "" || strings.Contains(strings.ToLower(p.content), strings.ToLower(keyword))
	})
}

// ListPostsByUser returns one newest-first page of a single author.
func (s *Store) ListPostsByUser(viewerID, userID uint, page, size int) *models.Page[models.Post] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagePosts(viewerID, page, size, func(p *postRecord) bool {
		return p.userID == userID
	})
}

func (s *Store) pagePosts(viewerID uint, page, size int, match func(*postRecord) bool) *models.Page[models.Post] {
	var filtered []*postRecord
	for _, p := range s.posts {
		if match(p) {
			filtered = append(filtered, p)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].createdAt.After(filtered[j].createdAt)
	})

	total := len(filtered)
	items := make([]models.Post, 0, size)
	for _, p := range paginate(filtered, page, size) {
		items = append(items, *s.postView(p, viewerID))
	}
	return &models.Page[models.Post]{
		Total:     total,
		TotalPage: totalPages(total, size),
		Items:     items,
	}
}

func (s *Store) GetPost(viewerID, postID uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPost(postID)
	if p == nil {
		return nil, ErrNotFound
	}
	return s.postView(p, viewerID), nil
}

// LikePost records a like and returns the new count. Liking twice is
// idempotent.
func (s *Store) LikePost(userID, postID uint) (int, error) {
	return s.setPostLike(userID, postID, true)
}

func (s *Store) UnlikePost(userID, postID uint) (int, error) {
	return s.setPostLike(userID, postID, false)
}

func (s *Store) setPostLike(userID, postID uint, liked bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPost(postID)
	if p == nil {
		return 0, ErrNotFound
	}
	if liked {
		p.likes[userID] = true
	} else {
		delete(p.likes, userID)
	}
	return len(p.likes), nil
}

// CreateComment stores a comment or reply and returns its view plus the
// post's new total count.
func (s *Store) CreateComment(userID, postID uint, content string, parentID *uint) (*models.Comment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findPost(postID) == nil {
		return nil, 0, ErrNotFound
	}
	if parentID != nil && s.findComment(*parentID) == nil {
		return nil, 0, ErrNotFound
	}

	c := &commentRecord{
		id:        s.id(),
		postID:    postID,
		parentID:  parentID,
		userID:    userID,
		content:   content,
		createdAt: time.Now(),
		likes:     make(map[uint]bool),
	}
	s.comments = append(s.comments, c)
	return s.commentView(c, userID), s.countComments(postID), nil
}

// CommentsByPost returns one page of top-level comments. sort=top orders
// by like count, sort=all by newest first.
func (s *Store) CommentsByPost(viewerID, postID uint, page, size int, sortMode models.CommentSort) *models.Page[models.Comment] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []*commentRecord
	for _, c := range s.comments {
		if c.postID == postID && c.parentID == nil {
			filtered = append(filtered, c)
		}
	}
	if sortMode == models.SortTop {
		sort.Slice(filtered, func(i, j int) bool {
			if len(filtered[i].likes) != len(filtered[j].likes) {
				return len(filtered[i].likes) > len(filtered[j].likes)
			}
			return filtered[i].createdAt.After(filtered[j].createdAt)
		})
	} else {
		sort.Slice(filtered, func(i, j int) bool {
			return filtered[i].createdAt.After(filtered[j].createdAt)
		})
	}
	return s.pageComments(filtered, viewerID, page, size)
}

// Replies returns one oldest-first page under a parent comment.
func (s *Store) Replies(viewerID, parentID uint, page, size int) *models.Page[models.Comment] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []*commentRecord
	for _, c := range s.comments {
		if c.parentID != nil && *c.parentID == parentID {
			filtered = append(filtered, c)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].createdAt.Before(filtered[j].createdAt)
	})
	return s.pageComments(filtered, viewerID, page, size)
}

func (s *Store) pageComments(filtered []*commentRecord, viewerID uint, page, size int) *models.Page[models.Comment] {
	total := len(filtered)
	items := make([]models.Comment, 0, size)
	for _, c := range paginate(filtered, page, size) {
		items = append(items, *s.commentView(c, viewerID))
	}
	return &models.Page[models.Comment]{
		Total:     total,
		TotalPage: totalPages(total, size),
		Items:     items,
	}
}

// CommentCount counts top-level comments plus all replies for a post.
func (s *Store) CommentCount(postID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countComments(postID)
}

func (s *Store) DeleteComment(userID, commentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.comments {
		if c.id == commentID {
			if c.userID != userID {
				return errors.New("not the comment owner")
			}
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// LikeComment records a like and returns the new count, plus the post ID
// the comment belongs to.
func (s *Store) LikeComment(userID, commentID uint) (int, error) {
	return s.setCommentLike(userID, commentID, true)
}

func (s *Store) UnlikeComment(userID, commentID uint) (int, error) {
	return s.setCommentLike(userID, commentID, false)
}

func (s *Store) setCommentLike(userID, commentID uint, liked bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findComment(commentID)
	if c == nil {
		return 0, ErrNotFound
	}
	if liked {
		c.likes[userID] = true
	} else {
		delete(c.likes, userID)
	}
	return len(c.likes), nil
}

func (s *Store) Provinces() []models.Province {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Province(nil), s.provinces...)
}

func (s *Store) WardsByProvince(provinceID uint) []models.Ward {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ward
	for _, w := range s.wards {
		if w.ProvinceID == provinceID {
			out = append(out, w)
		}
	}
	return out
}

func (s *Store) findPost(id uint) *postRecord {
	for _, p := range s.posts {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (s *Store) findComment(id uint) *commentRecord {
	for _, c := range s.comments {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (s *Store) countComments(postID uint) int {
	count := 0
	for _, c := range s.comments {
		if c.postID == postID {
			count++
		}
	}
	return count
}

func (s *Store) postView(p *postRecord, viewerID uint) *models.Post {
	scope := p.scope
	view := &models.Post{
		ID:        p.id,
		Content:   p.content,
		Scope:     &scope,
		Like:      len(p.likes),
		Share:     p.shares,
		CreatedAt: p.createdAt.Format(time.RFC3339),
		UserLiked: p.likes[viewerID],
		Link:      "/post/" + strconv.FormatUint(uint64(p.id), 10),
		Latitude:  p.latitude,
		Longitude: p.longitude,
		Files:     append([]models.PostFile(nil), p.files...),
	}
	if u, ok := s.users[p.userID]; ok {
		view.User = &models.PostUser{
			ID:        u.id,
			FirstName: u.firstName,
			LastName:  u.lastName,
			Avatar:    u.avatar,
		}
	}
	return view
}

func (s *Store) commentView(c *commentRecord, viewerID uint) *models.Comment {
	replies := 0
	for _, other := range s.comments {
		if other.parentID != nil && *other.parentID == c.id {
			replies++
		}
	}
	view := &models.Comment{
		ID:           c.id,
		Content:      c.content,
		Like:         len(c.likes),
		CreatedAt:    c.createdAt.Format(time.RFC3339),
		RepliesCount: replies,
		UserLiked:    c.likes[viewerID],
	}
	if u, ok := s.users[c.userID]; ok {
		view.User = models.CommentUser{
			ID:        u.id,
			FirstName: u.firstName,
			LastName:  u.lastName,
			Avatar:    u.avatar,
		}
	}
	return view
}

func userView(u *userRecord) *models.User {
	return &models.User{
		ID:        u.id,
		Email:     u.email,
		FirstName: u.firstName,
		LastName:  u.lastName,
		Avatar:    u.avatar,
		Latitude:  u.latitude,
		Longitude: u.longitude,
	}
}

func (s *Store) seedRegions() {
	now := time.Now().Format(time.RFC3339)
	for i, name := range []string{"Ha Noi", "Da Nang", "Ho Chi Minh"} {
		s.provinces = append(s.provinces, models.Province{
			ID:        uint(i + 1),
			Name:      name,
			Code:      fmt.Sprintf("P%02d", i+1),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	for i, name := range []string{"Ba Dinh", "Hoan Kiem", "Hai Chau", "Ben Nghe"} {
		provinceID := uint(1)
		if i == 2 {
			provinceID = 2
		}
		if i == 3 {
			provinceID = 3
		}
		s.wards = append(s.wards, models.Ward{
			ID:         uint(i + 1),
			Name:       name,
			Type:       "ward",
			ProvinceID: provinceID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
}

func totalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func paginate[T any](items []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
