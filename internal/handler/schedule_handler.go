package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EliasBlind/UniBot/internal/dto"
	"github.com/EliasBlind/UniBot/internal/models"
	"github.com/EliasBlind/UniBot/internal/service"
	appErrors "github.com/EliasBlind/UniBot/pkg/errors"
	"github.com/EliasBlind/UniBot/pkg/response"
)

const weekCacheKey = "schedule:week:current"

// ScheduleHandler exposes the consumer-facing schedule read API.
type ScheduleHandler struct {
	sync  *service.SyncService
	store *service.ScheduleService
	cache *service.CacheService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(sync *service.SyncService, store *service.ScheduleService, cache *service.CacheService) *ScheduleHandler {
	return &ScheduleHandler{sync: sync, store: store, cache: cache}
}

// Week serves the current week's occurrences, refreshing the persisted
// snapshot first when the cache deadline has passed. An empty week is an
// empty array, not an error.
//
// GET /api/v1/schedule/week
func (h *ScheduleHandler) Week(c *gin.Context) {
	ctx := c.Request.Context()

	var cached []models.ScheduleRow
	if hit, _ := h.cache.Get(ctx, weekCacheKey, &cached); hit {
		response.JSON(c, http.StatusOK, cached, map[string]interface{}{"cached": true})
		return
	}

	rows, err := h.sync.CurrentWeek(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rows == nil {
		rows = []models.ScheduleRow{}
	}

	_ = h.cache.Set(ctx, weekCacheKey, rows, 0)
	response.JSON(c, http.StatusOK, rows)
}

// Days serves stored occurrences for explicit dates, grouped per date.
//
// GET /api/v1/schedule/days?date=2024-01-15&date=2024-01-16
func (h *ScheduleHandler) Days(c *gin.Context) {
	dates := c.QueryArray("date")
	if len(dates) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one date parameter is required"))
		return
	}
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
			return
		}
	}

	byDate := h.store.LessonsByDates(c.Request.Context(), dates)
	response.JSON(c, http.StatusOK, dto.DaysFromMap(byDate))
}

// Delete removes one occurrence. Deleting an unknown id still answers 204.
//
// DELETE /api/v1/schedule/occurrences/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be an integer"))
		return
	}

	if err := h.store.Remove(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	_ = h.cache.Invalidate(c.Request.Context(), "schedule:week:*")
	response.NoContent(c)
}
