package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/utils"
)

type registerRequest struct {
	Name     string      `json:"name" binding:"required"`
	Tel      string      `json:"tel"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     models.Role `json:"role"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Please provide a name, email and password")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		fail(c, http.StatusBadRequest, "Role must be either user or admin")
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		h.serverError(c, err, "Cannot register user")
		return
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Tel:       req.Tel,
		Email:     req.Email,
		Role:      role,
		Password:  hashed,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Users.Insert(c.Request.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			fail(c, http.StatusConflict, "An account with this email already exists")
			return
		}
		h.serverError(c, err, "Cannot register user")
		return
	}

	h.sendTokenResponse(c, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Please provide an email and password")
		return
	}

	user, err := h.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil || !utils.CheckPasswordHash(req.Password, user.Password) {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.sendTokenResponse(c, user)
}

// GetMe returns the profile of the authenticated caller.
func (h *Handler) GetMe(c *gin.Context) {
	caller, valid := h.caller(c)
	if !valid {
		return
	}

	user, err := h.Users.FindByID(c.Request.Context(), caller.ID)
	if err != nil {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	ok(c, user)
}

func (h *Handler) sendTokenResponse(c *gin.Context, user *models.User) {
	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		h.Log.Error("token generation failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Could not generate token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "data": user})
}
