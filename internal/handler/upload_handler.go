package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/johannesrosenbaum/chatilo-server/pkg/response"
	"github.com/johannesrosenbaum/chatilo-server/pkg/storage"
)

// Media uploads above this size are rejected before hitting storage.
const maxUploadBytes = 50 << 20

type UploadHandler struct {
	storage storage.MediaStorage
}

func NewUploadHandler(storage storage.MediaStorage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media uploads are not configured"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer src.Close()

	url, err := h.storage.Upload(c.Request.Context(), src, "uploads/"+userID.String(), file.Filename)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}
