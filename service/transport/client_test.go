package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/phamvanchien/social-web/cmd/models"
)

func envelope(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(models.Response{Code: http.StatusOK, Message: "ok", Data: raw})
}

func TestAuthenticateReturnsUserAndToken(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["email"] != "ann@example.com" || payload["password"] != "secret" {
			t.Fatalf("credentials = %v", payload)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatal("missing X-Request-ID header")
		}
		envelope(w, map[string]any{
			"token": "tok-123",
			"user":  models.User{ID: 5, Email: "ann@example.com", FirstName: "Ann"},
		})
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	user, token, err := client.Authenticate("ann@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if token != "tok-123" || user.ID != 5 || user.FirstName != "Ann" {
		t.Fatalf("got token=%q user=%+v", token, user)
	}
}

func TestListPostsSendsPagingAndToken(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Fatalf("Authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("size") != "10" || q.Get("keyword") != "coffee" {
			t.Fatalf("query = %v", q)
		}
		envelope(w, models.Page[models.Post]{
			Total: 11, TotalPage: 2,
			Items: []models.Post{{ID: 1, Content: "hello"}},
		})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, func() string { return "tok-123" })
	page, err := client.ListPosts(2, PostPageSize, "coffee")
	if err != nil {
		t.Fatalf("ListPosts() error: %v", err)
	}
	if page.Total != 11 || len(page.Items) != 1 || page.Items[0].ID != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestRejectedEnvelopeBecomesAPIError(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/user/profile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Response{Code: http.StatusUnauthorized, Message: "token expired"})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.GetProfile()

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != http.StatusUnauthorized || apiErr.Message != "token expired" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestFieldErrorMessageWins(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/comments", func(w http.ResponseWriter, r *http.Request) {
		property := "content"
		json.NewEncoder(w).Encode(models.Response{
			Code:    http.StatusBadRequest,
			Message: "validation failed",
			Error:   &models.ResponseError{Property: &property, Message: "content is required"},
		})
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.CreateComment(&models.CreateCommentRequest{PostID: 1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "content is required" {
		t.Fatalf("Message = %q, want the field-level message", apiErr.Message)
	}
}

func TestGetCommentsByPostRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/comments/post/{postID}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["postID"] != "7" {
			t.Fatalf("postID = %q", mux.Vars(r)["postID"])
		}
		if got := r.URL.Query().Get("sort"); got != "top" {
			t.Fatalf("sort = %q", got)
		}
		envelope(w, models.Page[models.Comment]{
			Total: 1, TotalPage: 1,
			Items: []models.Comment{{ID: 3, Content: "nice"}},
		})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	page, err := client.GetCommentsByPost(7, 1, CommentPageSize, models.SortTop)
	if err != nil {
		t.Fatalf("GetCommentsByPost() error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != 3 {
		t.Fatalf("page = %+v", page)
	}
}

func TestGetCommentCount(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/comments/count/{postID}", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, models.CommentCount{Count: 17})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	count, err := client.GetCommentCount(7)
	if err != nil {
		t.Fatalf("GetCommentCount() error: %v", err)
	}
	if count != 17 {
		t.Fatalf("count = %d, want 17", count)
	}
}

func TestCreatePostUploadsMultipart(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(imgPath, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("content"); got != "first post" {
			t.Fatalf("content = %q", got)
		}
		if got := r.FormValue("scope"); got != "1" {
			t.Fatalf("scope = %q", got)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 1 || files[0].Filename != "photo.jpg" {
			t.Fatalf("files = %v", files)
		}
		envelope(w, models.Post{ID: 1})
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	err := client.CreatePost(&models.CreatePostRequest{
		Content:   "first post",
		Scope:     1,
		Type:      1,
		Active:    1,
		FilePaths: []string{imgPath},
	})
	if err != nil {
		t.Fatalf("CreatePost() error: %v", err)
	}
}

func TestUpdateLocationPayload(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/user/location", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]float64
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["lat"] != 10.5 || payload["long"] != 106.7 {
			t.Fatalf("payload = %v", payload)
		}
		envelope(w, nil)
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if err := client.UpdateLocation(10.5, 106.7); err != nil {
		t.Fatalf("UpdateLocation() error: %v", err)
	}
}

func TestGetWardsByProvince(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/regions/provinces/{provinceID}/wards", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["provinceID"] != "2" {
			t.Fatalf("provinceID = %q", mux.Vars(r)["provinceID"])
		}
		envelope(w, []models.Ward{{ID: 21, Name: "Ben Nghe"}})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	wards, err := client.GetWardsByProvince(2)
	if err != nil {
		t.Fatalf("GetWardsByProvince() error: %v", err)
	}
	if len(wards) != 1 || wards[0].Name != "Ben Nghe" {
		t.Fatalf("wards = %+v", wards)
	}
}
