package controller

import (
	"errors"
	"log"
	"net/http"

	service "github.com/nkhandel/MeetingMind/service"

	"github.com/gin-gonic/gin"
)

// ActionItemController manages HTTP requests for action items
type ActionItemController struct {
	actions *service.ActionItemService
}

func NewActionItemController(actions *service.ActionItemService) *ActionItemController {
	return &ActionItemController{actions: actions}
}

// GetPendingActionItems fetches all open action items with recording titles
func (c *ActionItemController) GetPendingActionItems(ctx *gin.Context) {
	items, err := c.actions.ListPending()
	if err != nil {
		log.Printf("Error fetching pending action items: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve action items",
			"details": err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Action items retrieved successfully",
		"items":   items,
	})
}

// CompleteActionItem marks an action item as completed
func (c *ActionItemController) CompleteActionItem(ctx *gin.Context) {
	item, err := c.actions.Complete(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Action item not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Action item marked as completed",
		"item":    item,
	})
}

// ReopenActionItem clears the completed state of an action item
func (c *ActionItemController) ReopenActionItem(ctx *gin.Context) {
	item, err := c.actions.Reopen(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Action item not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Action item reopened",
		"item":    item,
	})
}
