package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"slidestudio/internal/repository"
	"slidestudio/internal/slider"
)

// SliderHandler 管理首页顶部轮播。
type SliderHandler struct {
	service *slider.Service
}

func NewSliderHandler(service *slider.Service) *SliderHandler {
	return &SliderHandler{service: service}
}

type sliderItemResponse struct {
	slider.Item
	BackgroundType slider.BackgroundType `json:"background_type"`
	EmbedURL       string                `json:"embed_url,omitempty"`
}

func newSliderItemResponse(it slider.Item) sliderItemResponse {
	resp := sliderItemResponse{Item: it, BackgroundType: it.BackgroundType()}
	if it.YouTubeURL != nil {
		if id, ok := slider.YouTubeID(*it.YouTubeURL); ok {
			resp.EmbedURL = slider.EmbedURL(id)
		}
	}
	return resp
}

func newSliderList(items []slider.Item) []sliderItemResponse {
	out := make([]sliderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, newSliderItemResponse(it))
	}
	return out
}

func writeSliderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, slider.ErrInvalidItem), errors.Is(err, slider.ErrInvalidBackground):
		BadRequest(c, err.Error())
	case errors.Is(err, slider.ErrCannotMove):
		Conflict(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "slider item not found")
	default:
		loggerFrom(c).Error("slider operation failed", slog.Any("error", err))
		Internal(c, "internal error")
	}
}

// PublicItems 返回前台可见的条目，无需登录。
func (h *SliderHandler) PublicItems(c *gin.Context) {
	items, err := h.service.Public(c.Request.Context())
	if err != nil {
		writeSliderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSliderList(items))
}

func (h *SliderHandler) ListItems(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		writeSliderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSliderList(items))
}

func (h *SliderHandler) CreateItem(c *gin.Context) {
	var in slider.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	it, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		writeSliderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSliderItemResponse(*it))
}

func (h *SliderHandler) UpdateItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid slider item id")
		return
	}
	var in slider.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, err.Error())
		return
	}
	it, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		writeSliderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSliderItemResponse(*it))
}

type moveRequest struct {
	Direction slider.Direction `json:"direction" binding:"required"`
}

func (h *SliderHandler) MoveItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid slider item id")
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	items, err := h.service.Move(c.Request.Context(), id, req.Direction)
	if err != nil {
		writeSliderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSliderList(items))
}

func (h *SliderHandler) DeleteItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid slider item id")
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeSliderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
