package handler

import (
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

// MediaHandler media library backed by object storage
type MediaHandler struct {
	svc *service.MediaService
}

func NewMediaHandler(svc *service.MediaService) *MediaHandler {
	return &MediaHandler{svc: svc}
}

// Upload POST /api/media (multipart: file, alt)
func (h *MediaHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		BadRequest(c, "Cannot read uploaded file")
		return
	}
	defer f.Close()

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	media, err := h.svc.Upload(c.Request.Context(), service.UploadInput{
		FileName: fh.Filename,
		MimeType: mime,
		Size:     fh.Size,
		Alt:      c.PostForm("alt"),
		Body:     f,
	}, actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, media)
}

// Get GET /api/media/:id
func (h *MediaHandler) Get(c *gin.Context) {
	media, err := h.svc.Get(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, media)
}
