package apitest

import (
	"net/http"
	"sort"
	"time"
)

type devicePayload struct {
	DeviceName string `json:"device_name"`
	Location   string `json:"location"`
	IsActive   bool   `json:"is_active"`
}

type devicePublic struct {
	ID         int64     `json:"id"`
	DeviceName string    `json:"device_name"`
	Location   string    `json:"location"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type deviceWithToken struct {
	devicePublic
	Token string `json:"token"`
}

func publicDevice(d *deviceRecord) devicePublic {
	return devicePublic{
		ID:         d.id,
		DeviceName: d.deviceName,
		Location:   d.location,
		IsActive:   d.isActive,
		CreatedAt:  d.createdAt,
	}
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	devices := make([]devicePublic, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, publicDevice(d))
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req devicePayload
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.deviceName == req.DeviceName {
			writeDetail(w, http.StatusBadRequest, "Device name already exists")
			return
		}
	}

	rawToken := newDeviceToken()
	s.nextID++
	device := &deviceRecord{
		id:         s.nextID,
		deviceName: req.DeviceName,
		location:   req.Location,
		isActive:   req.IsActive,
		createdAt:  time.Now().UTC(),
		tokenHash:  hashSecret(rawToken),
	}
	s.devices[device.id] = device

	// The raw token leaves the server exactly here; only its hash is kept.
	writeJSON(w, http.StatusOK, deviceWithToken{devicePublic: publicDevice(device), Token: rawToken})
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	var req devicePayload
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	device, exists := s.devices[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	for _, d := range s.devices {
		if d.id != id && d.deviceName == req.DeviceName {
			writeDetail(w, http.StatusBadRequest, "Device name already exists")
			return
		}
	}
	device.deviceName = req.DeviceName
	device.location = req.Location
	device.isActive = req.IsActive
	writeJSON(w, http.StatusOK, publicDevice(device))
}

// handleDeleteDevice removes the device but deliberately leaves any user
// permission sets pointing at it untouched: the real backend may orphan
// references the same way and the console has to tolerate that.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.devices[id]; !exists {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	delete(s.devices, id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleResetToken(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	device, exists := s.devices[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Device not found")
		return
	}
	rawToken := newDeviceToken()
	device.tokenHash = hashSecret(rawToken)
	writeJSON(w, http.StatusOK, deviceWithToken{devicePublic: publicDevice(device), Token: rawToken})
}
