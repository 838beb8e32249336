package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/johannesrosenbaum/chatilo-server/internal/dto"
	"github.com/johannesrosenbaum/chatilo-server/internal/service"
	"github.com/johannesrosenbaum/chatilo-server/pkg/response"
	"github.com/johannesrosenbaum/chatilo-server/pkg/validator"
)

type RoomHandler struct {
	service service.RoomService
}

func NewRoomHandler(service service.RoomService) *RoomHandler {
	return &RoomHandler{service: service}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) NearbyRooms(c *gin.Context) {
	var query dto.NearbyRoomsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	rooms, err := h.service.NearbyRooms(c.Request.Context(), query.Latitude, query.Longitude)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rooms})
}

func (h *RoomHandler) membership(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return uuid.Nil, uuid.Nil, false
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roomID, true
}

func (h *RoomHandler) Join(c *gin.Context) {
	userID, roomID, ok := h.membership(c)
	if !ok {
		return
	}

	if err := h.service.Join(c.Request.Context(), userID, roomID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined room"})
}

func (h *RoomHandler) Leave(c *gin.Context) {
	userID, roomID, ok := h.membership(c)
	if !ok {
		return
	}

	if err := h.service.Leave(c.Request.Context(), userID, roomID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left room"})
}

func (h *RoomHandler) Favorite(c *gin.Context) {
	userID, roomID, ok := h.membership(c)
	if !ok {
		return
	}

	if err := h.service.Favorite(c.Request.Context(), userID, roomID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room favorited"})
}

func (h *RoomHandler) Unfavorite(c *gin.Context) {
	userID, roomID, ok := h.membership(c)
	if !ok {
		return
	}

	if err := h.service.Unfavorite(c.Request.Context(), userID, roomID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room unfavorited"})
}
