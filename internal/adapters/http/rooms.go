package http

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/dkeye/studyroom/internal/app"
	"github.com/dkeye/studyroom/internal/core"
	"github.com/dkeye/studyroom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const listLimit = 10

type RoomHandler struct {
	Store app.RoomStore
	Rooms core.RoomFactory
}

func NewRoomHandler(store app.RoomStore, rooms core.RoomFactory) *RoomHandler {
	return &RoomHandler{Store: store, Rooms: rooms}
}

// roomResponse never exposes the password hash. memberCount is the live
// occupancy, which may diverge from the stored participant history.
type roomResponse struct {
	RoomID       domain.RoomID        `json:"roomId"`
	Name         domain.RoomName      `json:"name"`
	HasPassword  bool                 `json:"hasPassword"`
	Settings     domain.TimerSettings `json:"settings"`
	CreatedBy    string               `json:"createdBy"`
	CreatedAt    time.Time            `json:"createdAt"`
	MemberCount  int                  `json:"memberCount"`
	Participants []string             `json:"participants,omitempty"`
}

func toResponse(r *domain.Room, members int) roomResponse {
	return roomResponse{
		RoomID:       r.ID,
		Name:         r.Name,
		HasPassword:  r.HasPassword(),
		Settings:     r.Settings,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		MemberCount:  members,
		Participants: r.Participants,
	}
}

// liveCount reads occupancy from the live room, 0 when nobody is connected.
func (h *RoomHandler) liveCount(id domain.RoomID) int {
	if room, ok := h.Rooms.Get(id); ok {
		return room.MemberCount()
	}
	return 0
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req struct {
		Name          string `json:"name"`
		Password      string `json:"password"`
		TimerDuration int    `json:"timerDuration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	room, err := domain.NewRoom(domain.RoomName(req.Name), c.GetString("client_token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("hash password")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error creating room"})
			return
		}
		room.PasswordHash = string(hash)
	}
	if req.TimerDuration > 0 {
		room.Settings = domain.TimerSettings{
			Duration:  req.TimerDuration,
			StartTime: time.Now(),
		}
	}

	if err := h.Store.CreateRoom(c.Request.Context(), room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error creating room"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(room.ID)).Msg("room created")
	c.JSON(http.StatusCreated, toResponse(room, 0))
}

// Join validates against the stored metadata and records participant
// history. A missing room and a bad password are distinct failures so the
// client can prompt for a password instead of treating the room as gone.
func (h *RoomHandler) Join(c *gin.Context) {
	var req struct {
		RoomID   string `json:"roomId"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	room, err := h.Store.GetRoom(c.Request.Context(), domain.RoomID(req.RoomID))
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", req.RoomID).Msg("join lookup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error joining room"})
		return
	}
	if errors.Is(app.CheckRoomPassword(room, req.Password), domain.ErrWrongPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	userID := c.GetString("client_token")
	if err := h.Store.AddParticipant(c.Request.Context(), room.ID, userID); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", req.RoomID).Msg("record participant")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error joining room"})
		return
	}
	if !slices.Contains(room.Participants, userID) {
		room.Participants = append(room.Participants, userID)
	}
	c.JSON(http.StatusOK, toResponse(room, h.liveCount(room.ID)))
}

func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.Store.ListRooms(c.Request.Context(), listLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching rooms"})
		return
	}
	counts := make(map[domain.RoomID]int)
	for _, info := range h.Rooms.List() {
		counts[info.ID] = info.MemberCount
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toResponse(r, counts[r.ID]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.Store.GetRoom(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching room"})
		return
	}
	c.JSON(http.StatusOK, toResponse(room, h.liveCount(room.ID)))
}
