package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/coimbatore-discount/internal/domain"
	"github.com/example/coimbatore-discount/internal/services"
)

// ImageHandler serves image uploads and downloads.
type ImageHandler struct {
	images *services.ImageService
}

// NewImageHandler constructs ImageHandler.
func NewImageHandler(images *services.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// Upload accepts a multipart "image" file.
func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}
	if file.Size > services.MaxImageSize {
		return fiber.NewError(fiber.StatusBadRequest, "File too large")
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	info, err := h.images.Upload(c.UserContext(), file.Filename, file.Header.Get("Content-Type"), data)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Image uploaded successfully",
		"id":      info.ID,
		"url":     info.URL,
	})
}

// Get streams the raw image bytes.
func (h *ImageHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Image not found")
	}

	image, err := h.images.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Image not found")
		}
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, image.ContentType)
	c.Set(fiber.HeaderContentLength, strconv.Itoa(len(image.Data)))
	return c.Send(image.Data)
}

// List returns metadata for every image without the bytes.
func (h *ImageHandler) List(c *fiber.Ctx) error {
	images, err := h.images.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(images)
}
