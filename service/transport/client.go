package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phamvanchien/social-web/cmd/models"
)

// Default page sizes the backend expects.
const (
	PostPageSize    = 10
	CommentPageSize = 10
	ReplyPageSize   = 5
)

// APIError is a response the backend answered but rejected. The envelope
// code and message come through unchanged so the caller can render them.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Client issues authenticated calls against the backend REST API. Token
// is a func so the session store stays the single owner of login state.
type Client struct {
	baseURL string
	token   func() string
	http    *http.Client
}

func NewClient(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Authenticate logs in and returns the profile plus access token.
func (c *Client) Authenticate(email, password string) (*models.User, string, error) {
	payload := map[string]string{"email": email, "password": password}

	var data struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := c.post("/authenticate", payload, &data); err != nil {
		return nil, "", err
	}
	return &data.User, data.Token, nil
}

// ListPosts fetches one page of the location-scoped feed.
func (c *Client) ListPosts(page, size int, keyword string) (*models.Page[models.Post], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	var data models.Page[models.Post]
	if err := c.get("/post", params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPostDetail fetches a single post by its share link ID.
func (c *Client) GetPostDetail(encodedID string) (*models.Post, error) {
	var data models.Post
	if err := c.get("/post/detail/"+url.PathEscape(encodedID), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetProfilePosts fetches a page of the logged-in user's own posts.
func (c *Client) GetProfilePosts(page, size int) (*models.Page[models.Post], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	var data models.Page[models.Post]
	if err := c.get("/post/profile", params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreatePost publishes a post, uploading any attached media as multipart
// form files.
func (c *Client) CreatePost(req *models.CreatePostRequest) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if strings.TrimSpace(req.Content) != "" {
		writer.WriteField("content", req.Content)
	}
	writer.WriteField("scope", strconv.Itoa(req.Scope))
	writer.WriteField("type", strconv.Itoa(req.Type))
	writer.WriteField("active", strconv.Itoa(req.Active))
	if req.Latitude != nil {
		writer.WriteField("latitude", strconv.FormatFloat(*req.Latitude, 'f', -1, 64))
	}
	if req.Longitude != nil {
		writer.WriteField("longitude", strconv.FormatFloat(*req.Longitude, 'f', -1, 64))
	}

	for _, path := range req.FilePaths {
		if err := attachFile(writer, "files", path); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return c.doMultipart("/post", writer.FormDataContentType(), body, nil)
}

// CreateComment creates a comment over REST. Only the optimistic submit
// strategy uses this; the push-driven strategy goes through the realtime
// channel instead.
func (c *Client) CreateComment(req *models.CreateCommentRequest) (*models.Comment, error) {
	var data models.Comment
	if err := c.post("/comments", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommentsByPost fetches one page of top-level comments at the given
// sort order.
func (c *Client) GetCommentsByPost(postID uint, page, size int, sort models.CommentSort) (*models.Page[models.Comment], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", string(sort))

	var data models.Page[models.Comment]
	if err := c.get(fmt.Sprintf("/comments/post/%d", postID), params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommentReplies fetches one page of replies under a comment.
func (c *Client) GetCommentReplies(commentID uint, page, size int) (*models.Page[models.Comment], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	var data models.Page[models.Comment]
	if err := c.get(fmt.Sprintf("/comments/%d/replies", commentID), params, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommentCount fetches the total comment count for a post.
func (c *Client) GetCommentCount(postID uint) (int, error) {
	var data models.CommentCount
	if err := c.get(fmt.Sprintf("/comments/count/%d", postID), nil, &data); err != nil {
		return 0, err
	}
	return data.Count, nil
}

// DeleteComment removes one of the viewer's own comments.
func (c *Client) DeleteComment(commentID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/comments/%d", commentID), nil, nil, nil)
}

// GetProfile fetches the logged-in user's profile.
func (c *Client) GetProfile() (*models.User, error) {
	var data models.User
	if err := c.get("/user/profile", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UpdateLocation stores the user's picked coordinates; the feed is scoped
// by them server-side.
func (c *Client) UpdateLocation(lat, long float64) error {
	payload := map[string]float64{"lat": lat, "long": long}
	return c.post("/user/location", payload, nil)
}

// UploadAvatar replaces the profile picture.
func (c *Client) UploadAvatar(path string) (*models.User, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := attachFile(writer, "avatar", path); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var data models.User
	if err := c.doMultipart("/user/avatar", writer.FormDataContentType(), body, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetProvinces lists all provinces for the location-selection flow.
func (c *Client) GetProvinces() ([]models.Province, error) {
	var data []models.Province
	if err := c.get("/regions/provinces", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetWardsByProvince lists the wards under one province.
func (c *Client) GetWardsByProvince(provinceID uint) ([]models.Ward, error) {
	var data []models.Ward
	if err := c.get(fmt.Sprintf("/regions/provinces/%d/wards", provinceID), nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) get(path string, params url.Values, out any) error {
	return c.do(http.MethodGet, path, params, nil, out)
}

func (c *Client) post(path string, body any, out any) error {
	return c.do(http.MethodPost, path, nil, body, out)
}

func (c *Client) do(method, path string, params url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequest(method, fullURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	return c.send(req, out)
}

func (c *Client) doMultipart(path string, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	c.setCommonHeaders(req)

	return c.send(req, out)
}

func (c *Client) setCommonHeaders(req *http.Request) {
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("X-Request-ID", uuid.New().String())
}

// send runs the request and unwraps the response envelope. Anything that
// is not a code-200 envelope becomes an error; the caller's state is
// never touched on failure.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	var envelope models.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}

	if envelope.Code != http.StatusOK {
		msg := envelope.Message
		if envelope.Error != nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return &APIError{Code: envelope.Code, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode payload from %s: %w", req.URL.Path, err)
		}
	}
	return nil
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
