package controllers

import (
	"errors"
	"net/http"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

type UploadController struct {
	uploads *services.UploadService
}

func NewUploadController(uploads *services.UploadService) *UploadController {
	return &UploadController{uploads: uploads}
}

// Presign returns a presigned PUT URL for a direct browser upload.
func (uc *UploadController) Presign(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req models.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := uc.uploads.Presign(c.Request.Context(), who, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Upload accepts a multipart form with "kind" and "file" and stores the file
// through the S3 upload manager.
func (uc *UploadController) Upload(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uc.uploads.MaxBytes()+multipartOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.Respond(c, apperrors.New(http.StatusRequestEntityTooLarge, "File is too large", nil))
			return
		}
		apperrors.Respond(c, apperrors.BadRequest("file is required"))
		return
	}
	kind := models.UploadKind(c.PostForm("kind"))

	file, err := fileHeader.Open()
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Failed to read file"))
		return
	}
	defer file.Close()

	resp, err := uc.uploads.Upload(c.Request.Context(), who, kind, fileHeader.Size, file)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// FileURL returns a presigned GET URL for key.
func (uc *UploadController) FileURL(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	resp, err := uc.uploads.FileURL(c.Request.Context(), who, c.Query("key"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
