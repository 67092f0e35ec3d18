package apitest

import (
	"net/http"
	"sort"
)

type userPayload struct {
	StudentID           string  `json:"student_id"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	CardUID             string  `json:"card_uid"`
	IsActive            bool    `json:"is_active"`
	AccessibleDeviceIDs []int64 `json:"accessible_device_ids"`
}

type userDetails struct {
	ID                    int64    `json:"id"`
	StudentID             string   `json:"student_id"`
	Name                  string   `json:"name"`
	Email                 string   `json:"email,omitempty"`
	CardUID               string   `json:"card_uid,omitempty"`
	IsActive              bool     `json:"is_active"`
	AccessibleDeviceIDs   []int64  `json:"accessible_device_ids"`
	AccessibleDeviceNames []string `json:"accessible_device_names"`
}

// userView keeps orphaned device ids in the id list (deleting a device does
// not rewrite user permission sets) while the name list only covers devices
// that still exist.
func (s *Server) userView(u *userRecord) userDetails {
	ids := append([]int64(nil), u.deviceIDs...)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.devices[id]; ok {
			names = append(names, d.deviceName)
		}
	}
	return userDetails{
		ID:                    u.id,
		StudentID:             u.studentID,
		Name:                  u.name,
		Email:                 u.email,
		CardUID:               u.cardUID,
		IsActive:              u.isActive,
		AccessibleDeviceIDs:   ids,
		AccessibleDeviceNames: names,
	}
}

// filterExistingDevices drops ids with no matching device, mirroring the
// backend's write-time referential check.
func (s *Server) filterExistingDevices(ids []int64) []int64 {
	kept := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.devices[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]userDetails, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, s.userView(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.studentID == req.StudentID {
			writeDetail(w, http.StatusBadRequest, "Student ID already exists")
			return
		}
		if req.CardUID != "" && u.cardUID == req.CardUID {
			writeDetail(w, http.StatusBadRequest, "Card UID already exists")
			return
		}
	}

	s.nextID++
	user := &userRecord{
		id:        s.nextID,
		studentID: req.StudentID,
		name:      req.Name,
		email:     req.Email,
		cardUID:   req.CardUID,
		isActive:  req.IsActive,
		deviceIDs: s.filterExistingDevices(req.AccessibleDeviceIDs),
	}
	s.users[user.id] = user
	writeJSON(w, http.StatusOK, s.userView(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	var req userPayload
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, exists := s.users[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	for _, u := range s.users {
		if u.id == id {
			continue
		}
		if u.studentID == req.StudentID {
			writeDetail(w, http.StatusBadRequest, "Student ID already exists")
			return
		}
		if req.CardUID != "" && u.cardUID == req.CardUID {
			writeDetail(w, http.StatusBadRequest, "Card UID already exists")
			return
		}
	}

	user.studentID = req.StudentID
	user.name = req.Name
	user.email = req.Email
	user.cardUID = req.CardUID
	user.isActive = req.IsActive
	// Full replacement, never a merge.
	user.deviceIDs = s.filterExistingDevices(req.AccessibleDeviceIDs)
	writeJSON(w, http.StatusOK, s.userView(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[id]; !exists {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.users, id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// OrphanUserDevice force-attaches a device id to a user without checking
// existence, so tests can model references left behind by a backend that
// does not clean up after device deletion.
func (s *Server) OrphanUserDevice(userID, deviceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[userID]; ok {
		user.deviceIDs = append(user.deviceIDs, deviceID)
	}
}
