package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/quest"
)

// QuestHandler handles quest REST endpoints.
type QuestHandler struct {
	svc *quest.Service
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(svc *quest.Service) *QuestHandler {
	return &QuestHandler{svc: svc}
}

// writeDomainError maps the domain error taxonomy to HTTP status codes.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quest.ErrValidation), errors.Is(err, quest.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, quest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, quest.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, quest.ErrVersionConflict), errors.Is(err, quest.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, quest.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Create handles POST /api/quests.
func (h *QuestHandler) Create(c *gin.Context) {
	var p quest.CreatePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := h.svc.CreateQuest(c.Request.Context(), mw.GetUserID(c), p)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// Get handles GET /api/quests/:id.
func (h *QuestHandler) Get(c *gin.Context) {
	q, err := h.svc.GetQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// List handles GET /api/quests?goal_id=&status=.
func (h *QuestHandler) List(c *gin.Context) {
	f := quest.ListFilter{
		GoalID: c.Query("goal_id"),
		Status: c.Query("status"),
	}
	quests, err := h.svc.ListQuests(c.Request.Context(), mw.GetUserID(c), f)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests, "count": len(quests)})
}

type updateQuestRequest struct {
	ExpectedVersion int64               `json:"expected_version" binding:"required,min=1"`
	Changes         quest.UpdatePayload `json:"changes"`
}

// Update handles PUT /api/quests/:id.
func (h *QuestHandler) Update(c *gin.Context) {
	var req updateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := h.svc.UpdateQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"), req.Changes, req.ExpectedVersion)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Start handles POST /api/quests/:id/start.
func (h *QuestHandler) Start(c *gin.Context) {
	q, err := h.svc.StartQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Complete handles POST /api/quests/:id/complete.
func (h *QuestHandler) Complete(c *gin.Context) {
	q, err := h.svc.CompleteQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type cancelQuestRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// Cancel handles POST /api/quests/:id/cancel.
func (h *QuestHandler) Cancel(c *gin.Context) {
	var req cancelQuestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	q, err := h.svc.CancelQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Fail handles POST /api/quests/:id/fail.
func (h *QuestHandler) Fail(c *gin.Context) {
	q, err := h.svc.FailQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Delete handles DELETE /api/quests/:id.
func (h *QuestHandler) Delete(c *gin.Context) {
	deleted, err := h.svc.DeleteQuest(c.Request.Context(), mw.GetUserID(c), c.Param("id"), mw.IsAdmin(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
