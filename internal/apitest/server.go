// Package apitest is an in-process stand-in for the access-control backend,
// faithful to the wire contract the console depends on: form-encoded login
// returning a bearer token, FastAPI-style {"detail": ...} error bodies,
// device tokens hashed at rest and revealed exactly once, and an audit log
// fed by device verifications. Tests mount Router() in an httptest.Server.
package apitest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type adminRecord struct {
	username     string
	passwordHash string
}

type userRecord struct {
	id        int64
	studentID string
	name      string
	email     string
	cardUID   string
	isActive  bool
	deviceIDs []int64
}

type deviceRecord struct {
	id         int64
	deviceName string
	location   string
	isActive   bool
	createdAt  time.Time
	tokenHash  string
}

type logRecord struct {
	id        int64
	timestamp time.Time
	userName  string
	cardUID   string
	method    string
	status    string
	details   string
}

type Server struct {
	mu      sync.Mutex
	secret  []byte
	admins  map[string]*adminRecord
	users   map[int64]*userRecord
	devices map[int64]*deviceRecord
	logs    []logRecord
	nextID  int64
}

func NewServer() *Server {
	return &Server{
		secret:  []byte("apitest-secret"),
		admins:  map[string]*adminRecord{},
		users:   map[int64]*userRecord{},
		devices: map[int64]*deviceRecord{},
	}
}

// SeedAdmin registers an operator account that can log in.
func (s *Server) SeedAdmin(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[username] = &adminRecord{username: username, passwordHash: hashSecret(password)}
}

// SeedAccessEvent appends an audit entry directly, bypassing device
// verification.
func (s *Server) SeedAccessEvent(userName, cardUID, method, status, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.logs = append(s.logs, logRecord{
		id:        s.nextID,
		timestamp: time.Now().UTC(),
		userName:  userName,
		cardUID:   cardUID,
		method:    method,
		status:    status,
		details:   details,
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handleLogin)
	r.Post("/access/verify", s.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/auth/change-password", s.handleChangePassword)

		r.Get("/users/", s.handleListUsers)
		r.Post("/users/", s.handleCreateUser)
		r.Put("/users/{id}", s.handleUpdateUser)
		r.Delete("/users/{id}", s.handleDeleteUser)

		r.Get("/devices/", s.handleListDevices)
		r.Post("/devices/", s.handleCreateDevice)
		r.Put("/devices/{id}", s.handleUpdateDevice)
		r.Delete("/devices/{id}", s.handleDeleteDevice)
		r.Post("/devices/{id}/reset-token", s.handleResetToken)

		r.Get("/access/logs", s.handleListLogs)
		r.Get("/access/export", s.handleExportLogs)
	})

	return r
}

// Auth

type adminClaims struct {
	jwt.RegisteredClaims
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	s.mu.Lock()
	admin, ok := s.admins[username]
	s.mu.Unlock()
	if !ok || admin.passwordHash != hashSecret(password) {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": signed, "token_type": "bearer"})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := adminClaims{}
		parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		s.mu.Lock()
		_, ok := s.admins[claims.Subject]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}
	username := subjectFromRequest(r, s.secret)

	s.mu.Lock()
	defer s.mu.Unlock()
	admin, ok := s.admins[username]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	if admin.passwordHash != hashSecret(req.OldPassword) {
		writeDetail(w, http.StatusBadRequest, "Old password is incorrect")
		return
	}
	admin.passwordHash = hashSecret(req.NewPassword)
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Password updated successfully"})
}

// helpers

func hashSecret(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func newDeviceToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("apitest: token entropy: %v", err))
	}
	return hex.EncodeToString(buf)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func subjectFromRequest(r *http.Request, secret []byte) string {
	claims := adminClaims{}
	parsed, err := jwt.ParseWithClaims(bearerToken(r.Header.Get("Authorization")), &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return ""
	}
	return claims.Subject
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) sortedLogs() []logRecord {
	logs := make([]logRecord, len(s.logs))
	copy(logs, s.logs)
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].timestamp.Equal(logs[j].timestamp) {
			return logs[i].id > logs[j].id
		}
		return logs[i].timestamp.After(logs[j].timestamp)
	})
	return logs
}

func exportCSV(w http.ResponseWriter, logs []logRecord) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=access_logs.csv")
	w.WriteHeader(http.StatusOK)

	// UTF-8 BOM so spreadsheet tools pick the right encoding.
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"ID", "Timestamp", "Name", "Card UID", "Method", "Status", "Details"})
	for _, entry := range logs {
		_ = writer.Write([]string{
			strconv.FormatInt(entry.id, 10),
			entry.timestamp.Format("2006-01-02 15:04:05"),
			entry.userName,
			entry.cardUID,
			entry.method,
			entry.status,
			entry.details,
		})
	}
	writer.Flush()
}
