package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Name         string  `json:"name" binding:"required,min=3,max=100"`
	Description  string  `json:"description" binding:"max=500"`
	Latitude     float64 `json:"latitude" binding:"latitude"`
	Longitude    float64 `json:"longitude" binding:"longitude"`
	RadiusMeters int     `json:"radius_meters" binding:"omitempty,min=100,max=50000"`
}

type NearbyRoomsQuery struct {
	Latitude  float64 `form:"lat" binding:"latitude"`
	Longitude float64 `form:"lng" binding:"longitude"`
}

type RoomResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description"`
	Locality       string    `json:"locality,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	RadiusMeters   int       `json:"radius_meters"`
	DistanceMeters float64   `json:"distance_meters,omitempty"`
	MemberCount    int64     `json:"member_count"`
	CreatedAt      time.Time `json:"created_at"`
}
