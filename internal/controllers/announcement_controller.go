package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

type announcementInput struct {
	Title     *string `json:"title"`
	Message   *string `json:"message"`
	Type      *string `json:"type"`
	Priority  *string `json:"priority"`
	IsActive  *bool   `json:"isActive"`
	ExpiresAt *string `json:"expiresAt"` // RFC3339
}

// CreateAnnouncement publishes a rider-facing notice. Admin only.
func CreateAnnouncement(c *gin.Context) {
	var input announcementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Title == nil {
		v.Add("title", "Title is required")
	} else {
		v.Length("title", *input.Title, 2, 100)
	}
	if input.Message == nil {
		v.Add("message", "Message is required")
	} else {
		v.Length("message", *input.Message, 2, 1000)
	}
	announcement := models.Announcement{
		Type:     models.AnnouncementInfo,
		Priority: models.PriorityMedium,
		IsActive: true,
	}
	if input.Type != nil {
		announcement.Type = models.AnnouncementType(*input.Type)
		if !announcement.Type.Valid() {
			v.Add("type", "Invalid announcement type")
		}
	}
	if input.Priority != nil {
		announcement.Priority = models.AnnouncementPriority(*input.Priority)
		if !announcement.Priority.Valid() {
			v.Add("priority", "Invalid priority")
		}
	}
	if input.ExpiresAt != nil {
		expires := parseRFC3339(&v, "expiresAt", *input.ExpiresAt)
		announcement.ExpiresAt = &expires
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	announcement.Title = *input.Title
	announcement.Message = *input.Message
	if input.IsActive != nil {
		announcement.IsActive = *input.IsActive
	}

	if err := config.DB.Create(&announcement).Error; err != nil {
		internalError(c, "announcement creation failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": announcement})
}

// UpdateAnnouncement modifies an existing announcement. Admin only.
func UpdateAnnouncement(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid announcement ID")
		return
	}

	var announcement models.Announcement
	if err := config.DB.First(&announcement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Announcement not found")
		} else {
			internalError(c, "announcement fetch failed", err)
		}
		return
	}

	var input announcementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Title != nil {
		v.Length("title", *input.Title, 2, 100)
		announcement.Title = *input.Title
	}
	if input.Message != nil {
		v.Length("message", *input.Message, 2, 1000)
		announcement.Message = *input.Message
	}
	if input.Type != nil {
		announcement.Type = models.AnnouncementType(*input.Type)
		if !announcement.Type.Valid() {
			v.Add("type", "Invalid announcement type")
		}
	}
	if input.Priority != nil {
		announcement.Priority = models.AnnouncementPriority(*input.Priority)
		if !announcement.Priority.Valid() {
			v.Add("priority", "Invalid priority")
		}
	}
	if input.ExpiresAt != nil {
		expires := parseRFC3339(&v, "expiresAt", *input.ExpiresAt)
		announcement.ExpiresAt = &expires
	}
	if input.IsActive != nil {
		announcement.IsActive = *input.IsActive
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	if err := config.DB.Save(&announcement).Error; err != nil {
		internalError(c, "announcement update failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": announcement, "message": "Announcement updated successfully"})
}

// DeleteAnnouncement removes an announcement. Admin only.
func DeleteAnnouncement(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid announcement ID")
		return
	}
	if err := config.DB.Delete(&models.Announcement{}, id).Error; err != nil {
		internalError(c, "announcement deletion failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Announcement deleted successfully"})
}

// PublicAnnouncements lists active, unexpired announcements, newest first.
// No authentication required.
func PublicAnnouncements(c *gin.Context) {
	var announcements []models.Announcement
	err := config.DB.
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at DESC").
		Find(&announcements).Error
	if err != nil {
		internalError(c, "announcement listing failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": announcements})
}
