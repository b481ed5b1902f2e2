package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ethiobus/internal/config"
	"ethiobus/internal/middleware"
	"ethiobus/internal/models"
	"ethiobus/internal/validation"
)

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type registerInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	PhoneNumber     string `json:"phoneNumber"`
	BusNumber       string `json:"busNumber"`
	RouteAssignment string `json:"routeAssignment"`
	LicenseNumber   string `json:"licenseNumber"`
}

// Login authenticates a user by email, password and requested role. Every
// failure mode returns the same message so callers cannot probe which
// factor was wrong.
func Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	v.Require("email", input.Email)
	if input.Email != "" {
		v.Email("email", input.Email)
	}
	v.Require("password", input.Password)
	if !models.Role(input.Role).Valid() {
		v.Add("role", "Invalid role specified")
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			internalError(c, "login lookup failed", err)
		}
		return
	}

	if user.Role != models.Role(input.Role) || !user.IsActive {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	user.LastLogin = &now
	if err := config.DB.Model(&user).Update("last_login", now).Error; err != nil {
		internalError(c, "last login update failed", err)
		return
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		internalError(c, "token generation failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
		"message": "Login successful",
	})
}

// Register creates a new account. Admin only; drivers additionally require
// bus number, route assignment and license number.
func Register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(input.Role)))

	var v validation.Violations
	v.Length("name", input.Name, 2, 100)
	v.Email("email", input.Email)
	if len(input.Password) < 6 {
		v.Add("password", "Password must be at least 6 characters")
	}
	if !role.Valid() {
		v.Add("role", "Invalid role specified")
	}
	if role == models.RoleDriver {
		v.Require("busNumber", input.BusNumber)
		v.Require("routeAssignment", input.RouteAssignment)
		v.Require("licenseNumber", input.LicenseNumber)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing models.User
	if err := config.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		fail(c, http.StatusConflict, "User with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, "password hashing failed", err)
		return
	}

	user := models.User{
		Name:        strings.TrimSpace(input.Name),
		Email:       email,
		Password:    string(hash),
		Role:        role,
		PhoneNumber: input.PhoneNumber,
		IsActive:    true,
	}
	if role == models.RoleDriver {
		user.BusNumber = input.BusNumber
		user.RouteAssignment = input.RouteAssignment
		user.LicenseNumber = input.LicenseNumber
	}

	if err := config.DB.Create(&user).Error; err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			fail(c, http.StatusConflict, "User with this email already exists")
			return
		}
		internalError(c, "user creation failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    user,
		"message": "User registered successfully",
	})
}

// Me returns the authenticated user.
func Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    middleware.CurrentUser(c),
	})
}

// Logout exists for client symmetry; tokens are discarded client-side.
func Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// UpdateProfile lets any authenticated user change their own name and phone
// number.
func UpdateProfile(c *gin.Context) {
	var input struct {
		Name        *string `json:"name"`
		PhoneNumber *string `json:"phoneNumber"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var v validation.Violations
	if input.Name != nil {
		v.Length("name", *input.Name, 2, 100)
	}
	if !v.Empty() {
		failValidation(c, v.Errors())
		return
	}

	user := middleware.CurrentUser(c)
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = *input.PhoneNumber
	}

	if err := config.DB.Save(&user).Error; err != nil {
		internalError(c, "profile update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
		"message": "Profile updated successfully",
	})
}
