package stub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/phamvanchien/social-web/cmd/models"
)

type contextKey string

const userIDKey contextKey = "userID"

// APIServer is the local development backend: the REST surface the
// client expects plus the realtime hub, backed by the in-memory store.
type APIServer struct {
	address string
	secret  []byte
	store   *Store
	hub     *Hub
}

func NewAPIServer(address string) *APIServer {
	secret := os.Getenv("STUB_SECRET_KEY")
	if secret == "" {
		secret = "social-web-stub"
	}
	store := NewStore()
	return &APIServer{
		address: address,
		secret:  []byte(secret),
		store:   store,
		hub:     NewHub(store),
	}
}

// Store exposes the backing store for test seeding.
func (s *APIServer) Store() *Store {
	return s.store
}

func (s *APIServer) Run() error {
	log.Println("Stub server running at", s.address)
	return http.ListenAndServe(s.address, s.Handler())
}

// Handler builds the full route table; tests mount it on httptest.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/authenticate", s.handleAuthenticate).Methods("POST")

	router.HandleFunc("/post", s.auth(s.handleCreatePost)).Methods("POST")
	router.HandleFunc("/post", s.auth(s.handleListPosts)).Methods("GET")
	router.HandleFunc("/post/profile", s.auth(s.handleProfilePosts)).Methods("GET")
	router.HandleFunc("/post/detail/{id}", s.auth(s.handlePostDetail)).Methods("GET")

	router.HandleFunc("/comments", s.auth(s.handleCreateComment)).Methods("POST")
	router.HandleFunc("/comments/post/{postId}", s.auth(s.handleCommentsByPost)).Methods("GET")
	router.HandleFunc("/comments/{id}/replies", s.auth(s.handleReplies)).Methods("GET")
	router.HandleFunc("/comments/count/{postId}", s.auth(s.handleCommentCount)).Methods("GET")
	router.HandleFunc("/comments/{id}", s.auth(s.handleDeleteComment)).Methods("DELETE")

	router.HandleFunc("/user/profile", s.auth(s.handleProfile)).Methods("GET")
	router.HandleFunc("/user/location", s.auth(s.handleUpdateLocation)).Methods("POST")
	router.HandleFunc("/user/avatar", s.auth(s.handleUploadAvatar)).Methods("POST")

	router.HandleFunc("/regions/provinces", s.handleProvinces).Methods("GET")
	router.HandleFunc("/regions/provinces/{id}/wards", s.handleWards).Methods("GET")

	router.HandleFunc("/ws", s.auth(s.handleWebSocket))

	return handlers.LoggingHandler(os.Stdout, handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "Accept-Language", "X-Request-ID"}),
	)(router))
}

func (s *APIServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s.hub.HandleWebSocket(userID, w, r)
}

// auth validates the bearer token and stashes the user ID in the request
// context. The websocket route also accepts the token as a query param
// since not every client can set headers on the upgrade request.
func (s *APIServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.Replace(r.Header.Get("Authorization"), "Bearer ", "", 1)
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			writeEnvelopeError(w, http.StatusUnauthorized, "Authorization required")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeEnvelopeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			writeEnvelopeError(w, http.StatusUnauthorized, "Invalid user ID in token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, uint(userID))
		next(w, r.WithContext(ctx))
	}
}

func (s *APIServer) generateToken(userID uint) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(28 * 24 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func userIDFromContext(ctx context.Context) (uint, error) {
	userID, ok := ctx.Value(userIDKey).(uint)
	if !ok {
		return 0, errors.New("user ID not found in context")
	}
	return userID, nil
}

func writeEnvelope(w http.ResponseWriter, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		writeEnvelopeError(w, http.StatusInternalServerError, "Error encoding response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    raw,
	})
}

func writeEnvelopeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.Response{
		Code:    code,
		Message: message,
		Error:   &models.ResponseError{Message: message},
	})
}
