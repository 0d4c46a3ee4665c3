package profile

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/db"
	"github.com/phamvanchien/social-web/service/session"
)

type fakeAPI struct {
	profile   func() (*models.User, error)
	posts     func(page, size int) (*models.Page[models.Post], error)
	location  func(lat, long float64) error
	postCalls int
}

func (a *fakeAPI) GetProfile() (*models.User, error) {
	if a.profile == nil {
		return &models.User{ID: 1}, nil
	}
	return a.profile()
}

func (a *fakeAPI) GetProfilePosts(page, size int) (*models.Page[models.Post], error) {
	a.postCalls++
	if a.posts == nil {
		return &models.Page[models.Post]{}, nil
	}
	return a.posts(page, size)
}

func (a *fakeAPI) UploadAvatar(path string) (*models.User, error) {
	return &models.User{ID: 1, Avatar: "/uploads/new.jpg", Email: "ann@example.com"}, nil
}

func (a *fakeAPI) UpdateLocation(lat, long float64) error {
	if a.location == nil {
		return nil
	}
	return a.location(lat, long)
}

func (a *fakeAPI) GetProvinces() ([]models.Province, error) {
	return []models.Province{{ID: 1, Name: "Ha Noi"}}, nil
}

func (a *fakeAPI) GetWardsByProvince(provinceID uint) ([]models.Ward, error) {
	return []models.Ward{{ID: 10, Name: "Hoan Kiem", ProvinceID: provinceID}}, nil
}

func loggedInStore(t *testing.T) *session.Store {
	t.Helper()
	storage, err := db.NewLocalStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	store, err := session.NewStore(storage)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	user := &models.User{ID: 1, Email: "ann@example.com", FirstName: "Ann"}
	if err := store.Save(user, token); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	return store
}

func TestLoadRefreshesSessionCache(t *testing.T) {
	store := loggedInStore(t)
	api := &fakeAPI{
		profile: func() (*models.User, error) {
			return &models.User{ID: 1, Email: "ann@example.com", FirstName: "Ann", Avatar: "/uploads/a.jpg"}, nil
		},
	}
	svc := NewService(api, store)

	user, err := svc.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if user.Avatar != "/uploads/a.jpg" {
		t.Fatalf("user = %+v", user)
	}

	sess, err := store.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if sess.Avatar != "/uploads/a.jpg" {
		t.Fatalf("session avatar = %q, want the fetched one", sess.Avatar)
	}
}

func TestPostPaginationDedupes(t *testing.T) {
	pages := map[int]*models.Page[models.Post]{
		1: {Total: 3, TotalPage: 2, Items: []models.Post{{ID: 1}, {ID: 2}}},
		2: {Total: 3, TotalPage: 2, Items: []models.Post{{ID: 2}, {ID: 3}}},
	}
	api := &fakeAPI{
		posts: func(page, _ int) (*models.Page[models.Post], error) {
			return pages[page], nil
		},
	}
	svc := NewService(api, loggedInStore(t))

	if err := svc.RefreshPosts(); err != nil {
		t.Fatalf("RefreshPosts() error: %v", err)
	}
	if err := svc.LoadMorePosts(); err != nil {
		t.Fatalf("LoadMorePosts() error: %v", err)
	}
	svc.LoadMorePosts()

	posts, hasMore := svc.Posts()
	if len(posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(posts))
	}
	if hasMore {
		t.Fatal("page 2 of 2 should have no more")
	}
	if api.postCalls != 2 {
		t.Fatalf("fetched %d times, want 2", api.postCalls)
	}
}

func TestSetLocationMirrorsIntoSession(t *testing.T) {
	store := loggedInStore(t)
	var gotLat, gotLong float64
	api := &fakeAPI{
		location: func(lat, long float64) error {
			gotLat, gotLong = lat, long
			return nil
		},
	}
	svc := NewService(api, store)

	if err := svc.SetLocation(10.5, 106.7); err != nil {
		t.Fatalf("SetLocation() error: %v", err)
	}
	if gotLat != 10.5 || gotLong != 106.7 {
		t.Fatalf("server got %v, %v", gotLat, gotLong)
	}

	sess, err := store.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if sess.Latitude != 10.5 || sess.Longitude != 106.7 {
		t.Fatalf("session location = %v, %v", sess.Latitude, sess.Longitude)
	}
}

func TestSetLocationErrorDoesNotTouchSession(t *testing.T) {
	store := loggedInStore(t)
	api := &fakeAPI{
		location: func(lat, long float64) error {
			return fmt.Errorf("server down")
		},
	}
	svc := NewService(api, store)

	if err := svc.SetLocation(10.5, 106.7); err == nil {
		t.Fatal("SetLocation() should surface the error")
	}
	sess, _ := store.Current()
	if sess.Latitude != 0 || sess.Longitude != 0 {
		t.Fatalf("session location = %v, %v, want untouched", sess.Latitude, sess.Longitude)
	}
}

func TestSetAvatarUpdatesSession(t *testing.T) {
	store := loggedInStore(t)
	svc := NewService(&fakeAPI{}, store)

	user, err := svc.SetAvatar("/tmp/photo.jpg")
	if err != nil {
		t.Fatalf("SetAvatar() error: %v", err)
	}
	if user.Avatar != "/uploads/new.jpg" {
		t.Fatalf("user = %+v", user)
	}
	sess, _ := store.Current()
	if sess.Avatar != "/uploads/new.jpg" {
		t.Fatalf("session avatar = %q", sess.Avatar)
	}
}
