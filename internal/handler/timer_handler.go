package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clockko/focus/internal/model"
	"clockko/focus/internal/timer"
)

// eventBuffer is how many states a slow event stream client may fall behind
// before frames are dropped.
const eventBuffer = 16

type TimerHandler struct {
	timer *timer.Timer
}

type focusRequest struct {
	DurationMinutes *int `json:"durationMinutes"`
}

type breakRequest struct {
	DurationMinutes *int `json:"durationMinutes"`
	PauseFocus      bool `json:"pauseFocus"`
}

func NewTimerHandler(t *timer.Timer) *TimerHandler {
	return &TimerHandler{timer: t}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.timer.State()})
}

func (h *TimerHandler) StartFocus(c *gin.Context) {
	var req focusRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	minutes, _ := h.timer.DefaultMinutes()
	if req.DurationMinutes != nil {
		minutes = *req.DurationMinutes
	}

	state, apiErr := h.timer.StartFocusSession(c.Request.Context(), minutes)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) StartBreak(c *gin.Context) {
	var req breakRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	_, minutes := h.timer.DefaultMinutes()
	if req.DurationMinutes != nil {
		minutes = *req.DurationMinutes
	}

	state, apiErr := h.timer.StartBreakSession(c.Request.Context(), minutes, req.PauseFocus)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	state, apiErr := h.timer.Pause()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Resume(c *gin.Context) {
	state, apiErr := h.timer.Resume()
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Stop(c *gin.Context) {
	state := h.timer.Stop(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// Events streams every state change as a server-sent "state" event, starting
// with the current state.
func (h *TimerHandler) Events(c *gin.Context) {
	states := make(chan model.TimerState, eventBuffer)
	unsubscribe := h.timer.Subscribe(func(state model.TimerState) {
		select {
		case states <- state:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	for {
		select {
		case state := <-states:
			c.SSEvent("state", state)
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
