package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/phamvanchien/social-web/cmd/models"
)

const maxUploadSize = 50 << 20

// handleCreatePost accepts the multipart publish form and stores any
// uploaded media under the uploads dir.
func (s *APIServer) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	content := r.FormValue("content")
	scope, _ := strconv.Atoi(r.FormValue("scope"))

	var lat, long *float64
	if v, err := strconv.ParseFloat(r.FormValue("latitude"), 64); err == nil {
		lat = &v
	}
	if v, err := strconv.ParseFloat(r.FormValue("longitude"), 64); err == nil {
		long = &v
	}

	var files []models.PostFile
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				writeEnvelopeError(w, http.StatusInternalServerError, "Error processing upload")
				return
			}
			url, err := saveUpload(file, header.Filename)
			file.Close()
			if err != nil {
				writeEnvelopeError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving upload: %v", err))
				return
			}
			files = append(files, models.PostFile{URL: url, Type: 1})
		}
	}

	if content == "" && len(files) == 0 {
		writeEnvelopeError(w, http.StatusBadRequest, "Content is required")
		return
	}

	post := s.store.CreatePost(userID, content, scope, lat, long, files)
	writeEnvelope(w, post)
}

func (s *APIServer) handleListPosts(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	page, size := pageParams(r, 10)
	keyword := r.URL.Query().Get("keyword")
	writeEnvelope(w, s.store.ListPosts(userID, page, size, keyword))
}

func (s *APIServer) handleProfilePosts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	page, size := pageParams(r, 10)
	writeEnvelope(w, s.store.ListPostsByUser(userID, userID, page, size))
}

func (s *APIServer) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	postID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	post, err := s.store.GetPost(userID, uint(postID))
	if errors.Is(err, ErrNotFound) {
		writeEnvelopeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeEnvelope(w, post)
}

// handleCreateComment is the REST create used by the optimistic submit
// strategy. It does not broadcast comment_created, so the sender never
// sees its own echo.
func (s *APIServer) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "Content is required")
		return
	}

	comment, _, err := s.store.CreateComment(userID, req.PostID, req.Content, req.ParentID)
	if errors.Is(err, ErrNotFound) {
		writeEnvelopeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeEnvelope(w, comment)
}

func (s *APIServer) handleCommentsByPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	postID, err := strconv.ParseUint(mux.Vars(r)["postId"], 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	page, size := pageParams(r, 10)
	sortMode := models.CommentSort(r.URL.Query().Get("sort"))
	if sortMode != models.SortAll {
		sortMode = models.SortTop
	}
	writeEnvelope(w, s.store.CommentsByPost(userID, uint(postID), page, size, sortMode))
}

func (s *APIServer) handleReplies(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	commentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	page, size := pageParams(r, 5)
	writeEnvelope(w, s.store.Replies(userID, uint(commentID), page, size))
}

func (s *APIServer) handleCommentCount(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseUint(mux.Vars(r)["postId"], 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}
	writeEnvelope(w, models.CommentCount{Count: s.store.CommentCount(uint(postID))})
}

func (s *APIServer) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	commentID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	if err := s.store.DeleteComment(userID, uint(commentID)); err != nil {
		writeEnvelopeError(w, http.StatusNotFound, "Comment not found")
		return
	}
	writeEnvelope(w, true)
}

func pageParams(r *http.Request, defaultSize int) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 {
		size = defaultSize
	}
	return page, size
}

// saveUpload writes an uploaded file under uploads/ with a fresh name
// and returns its URL path.
func saveUpload(file io.Reader, original string) (string, error) {
	dir := filepath.Join("uploads", "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	ext := filepath.Ext(original)
	filename := fmt.Sprintf("%s-%s%s",
		time.Now().Format("20060102"),
		uuid.New().String(),
		ext,
	)
	path := filepath.Join(dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}

	return "/images/" + filename, nil
}
