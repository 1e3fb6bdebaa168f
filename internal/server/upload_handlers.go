package server

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/service"
)

// UploadAvatar handles POST /api/upload/avatar: processes the image and
// points the caller's profile at it.
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	stored, err := s.processUpload(c, service.MediaKindAvatar)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userService.SetAvatarURL(c.Context(), currentUserID(c), stored.URL)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"url":  stored.URL,
		"user": user,
	})
}

// UploadHeader handles POST /api/upload/header.
func (s *Server) UploadHeader(c *fiber.Ctx) error {
	stored, err := s.processUpload(c, service.MediaKindHeader)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userService.SetHeaderURL(c.Context(), currentUserID(c), stored.URL)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"url":  stored.URL,
		"user": user,
	})
}

// UploadTweetImage handles POST /api/upload/tweet: stores the image and
// returns the URL for the client to attach on the subsequent tweet create.
func (s *Server) UploadTweetImage(c *fiber.Ctx) error {
	stored, err := s.processUpload(c, service.MediaKindTweet)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, fiber.Map{
		"url":    stored.URL,
		"width":  stored.Width,
		"height": stored.Height,
	})
}

// ServeMedia handles GET /media/:filename for locally stored uploads.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	path, err := s.mediaService.MediaPath(c.Params("filename"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendFile(path)
}

// processUpload reads the multipart "file" part and runs it through the
// media pipeline.
func (s *Server) processUpload(c *fiber.Ctx, kind string) (*service.StoredMedia, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, models.NewFieldValidationError("file", "image file is required")
	}

	content, err := readMultipartFile(fileHeader)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return s.mediaService.Upload(service.UploadMediaInput{
		UserID:      currentUserID(c),
		Kind:        kind,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
