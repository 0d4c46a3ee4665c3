package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// handleAuthenticate logs in by email, creating the account on first
// sight. Any password is accepted; this is a development stub.
func (s *APIServer) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	user := s.store.FindOrCreateUser(req.Email)
	token, err := s.generateToken(user.ID)
	if err != nil {
		writeEnvelopeError(w, http.StatusInternalServerError, "Error generating token")
		return
	}

	writeEnvelope(w, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (s *APIServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := s.store.GetUser(userID)
	if err != nil {
		writeEnvelopeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeEnvelope(w, user)
}

func (s *APIServer) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Lat  float64 `json:"lat"`
		Long float64 `json:"long"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.store.UpdateLocation(userID, req.Lat, req.Long); err != nil {
		writeEnvelopeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeEnvelope(w, true)
}

func (s *APIServer) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeEnvelopeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()

	url, err := saveUpload(file, header.Filename)
	if err != nil {
		writeEnvelopeError(w, http.StatusInternalServerError, "Error saving avatar")
		return
	}

	user, err := s.store.SetAvatar(userID, url)
	if err != nil {
		writeEnvelopeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeEnvelope(w, user)
}

func (s *APIServer) handleProvinces(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, s.store.Provinces())
}

func (s *APIServer) handleWards(w http.ResponseWriter, r *http.Request) {
	provinceID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "Invalid province ID")
		return
	}
	writeEnvelope(w, s.store.WardsByProvince(uint(provinceID)))
}
