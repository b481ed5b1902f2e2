package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

// IncidentResponse mirrors models.Incident with the derived timing fields.
type IncidentResponse struct {
	models.Incident
	ResponseTime   *int `json:"response_time"`
	ResolutionTime *int `json:"resolution_time"`
	AgeHours       int  `json:"age_hours"`
}

func toIncidentResponse(i models.Incident) IncidentResponse {
	return IncidentResponse{
		Incident:       i,
		ResponseTime:   i.ResponseTime(),
		ResolutionTime: i.ResolutionTime(),
		AgeHours:       i.AgeHours(),
	}
}

func toIncidentResponses(incidents []models.Incident) []IncidentResponse {
	out := make([]IncidentResponse, 0, len(incidents))
	for _, i := range incidents {
		out = append(out, toIncidentResponse(i))
	}
	return out
}

// ListIncidents returns incidents filtered by status, severity and type,
// newest first. Admin only.
func ListIncidents(c *gin.Context) {
	q := config.DB.Model(&models.Incident{})

	if status := c.Query("status"); status != "" {
		if !models.IncidentStatus(status).Valid() {
			fail(c, http.StatusBadRequest, "Invalid status filter")
			return
		}
		q = q.Where("status = ?", status)
	}
	if severity := c.Query("severity"); severity != "" {
		if !models.IncidentSeverity(severity).Valid() {
			fail(c, http.StatusBadRequest, "Invalid severity filter")
			return
		}
		q = q.Where("severity = ?", severity)
	}
	if incidentType := c.Query("type"); incidentType != "" {
		if !models.IncidentType(incidentType).Valid() {
			fail(c, http.StatusBadRequest, "Invalid type filter")
			return
		}
		q = q.Where("type = ?", incidentType)
	}

	var incidents []models.Incident
	if err := q.Order("created_at DESC").Find(&incidents).Error; err != nil {
		internalError(c, "incident listing failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toIncidentResponses(incidents)})
}

// AssignIncident assigns an incident to a user and stamps the assignment
// time. Admin only.
func AssignIncident(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid incident ID")
		return
	}

	var input struct {
		UserID uint `json:"userId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.UserID == 0 {
		fail(c, http.StatusBadRequest, "Assignee user ID is required")
		return
	}

	var incident models.Incident
	if err := config.DB.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Incident not found")
		} else {
			internalError(c, "incident fetch failed", err)
		}
		return
	}

	var assignee models.User
	if err := config.DB.First(&assignee, input.UserID).Error; err != nil {
		fail(c, http.StatusBadRequest, "Assignee not found")
		return
	}

	now := time.Now()
	incident.AssignedTo = models.AssignedTo{
		UserID:     &assignee.ID,
		Name:       assignee.Name,
		AssignedAt: &now,
	}
	if incident.Status == models.IncidentReported {
		incident.Status = models.IncidentInvestigating
	}
	if err := config.DB.Save(&incident).Error; err != nil {
		internalError(c, "incident assignment failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toIncidentResponse(incident), "message": "Incident assigned successfully"})
}

// UpdateIncidentStatus sets an incident's status. Reaching resolved stamps
// the resolution time once; repeat transitions keep the original stamp.
func UpdateIncidentStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid incident ID")
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := models.IncidentStatus(input.Status)
	if !status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}

	var incident models.Incident
	if err := config.DB.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Incident not found")
		} else {
			internalError(c, "incident fetch failed", err)
		}
		return
	}

	incident.Status = status
	if err := config.DB.Save(&incident).Error; err != nil {
		internalError(c, "incident status update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toIncidentResponse(incident), "message": "Incident status updated successfully"})
}

// UpdateIncidentResolution records the resolution narrative and actions
// taken, attributed to the acting admin.
func UpdateIncidentResolution(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid incident ID")
		return
	}

	var input struct {
		Description  string   `json:"description"`
		ActionsTaken []string `json:"actionsTaken"`
		Resolve      bool     `json:"resolve"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	v.Require("description", input.Description)
	v.MaxLength("description", input.Description, 1000)
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	var incident models.Incident
	if err := config.DB.First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Incident not found")
		} else {
			internalError(c, "incident fetch failed", err)
		}
		return
	}

	incident.Resolution.Description = input.Description
	incident.Resolution.ResolvedByID = &admin.ID
	incident.Resolution.ResolvedByName = admin.Name
	if len(input.ActionsTaken) > 0 {
		incident.Resolution.ActionsTaken = input.ActionsTaken
	}
	if input.Resolve {
		incident.Status = models.IncidentResolved
	}
	if err := config.DB.Save(&incident).Error; err != nil {
		internalError(c, "incident resolution update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": toIncidentResponse(incident), "message": "Incident resolution updated successfully"})
}
