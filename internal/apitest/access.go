package apitest

import (
	"net/http"
	"strconv"
	"time"
)

type verifyRequest struct {
	CardUID  string `json:"card_uid"`
	DeviceID string `json:"device_id"`
}

type accessLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name,omitempty"`
	CardUID   string    `json:"card_uid,omitempty"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Details   string    `json:"details,omitempty"`
}

// handleVerify authenticates a door controller by device name plus its
// one-time-issued token and records the attempt. Rotation tests drive this
// endpoint to prove a prior token stops working.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}
	deviceToken := r.Header.Get("x-device-token")

	s.mu.Lock()
	defer s.mu.Unlock()

	var device *deviceRecord
	for _, d := range s.devices {
		if d.deviceName == req.DeviceID {
			device = d
			break
		}
	}
	if device == nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid Device ID")
		return
	}
	if device.tokenHash != hashSecret(deviceToken) {
		writeDetail(w, http.StatusUnauthorized, "Invalid Device Token")
		return
	}
	if !device.isActive {
		writeDetail(w, http.StatusForbidden, "Device is disabled")
		return
	}

	granted := false
	message := "Unknown Card"
	status := "UNKNOWN_CARD"
	userName := ""
	for _, u := range s.users {
		if u.cardUID == "" || u.cardUID != req.CardUID {
			continue
		}
		userName = u.name
		if !u.isActive {
			message = "User Inactive"
			status = "DENIED_USER_INACTIVE"
			break
		}
		permitted := false
		for _, id := range u.deviceIDs {
			if id == device.id {
				permitted = true
				break
			}
		}
		if permitted {
			granted = true
			message = "Welcome, " + u.name
			status = "SUCCESS"
		} else {
			message = "No Permission for this door"
			status = "DENIED_DEVICE"
		}
		break
	}

	s.nextID++
	s.logs = append(s.logs, logRecord{
		id:        s.nextID,
		timestamp: time.Now().UTC(),
		userName:  userName,
		cardUID:   req.CardUID,
		method:    "RFID",
		status:    status,
		details:   "Device: " + req.DeviceID + " | " + message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access":  granted,
		"message": message,
	})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	logs := s.sortedLogs()
	if len(logs) > limit {
		logs = logs[:limit]
	}
	entries := make([]accessLogEntry, 0, len(logs))
	for _, entry := range logs {
		entries = append(entries, accessLogEntry{
			ID:        entry.id,
			Timestamp: entry.timestamp,
			UserName:  entry.userName,
			CardUID:   entry.cardUID,
			Method:    entry.method,
			Status:    entry.status,
			Details:   entry.details,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExportLogs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	logs := s.sortedLogs()
	s.mu.Unlock()
	exportCSV(w, logs)
}
