package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/middleware"
	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/service"
	"github.com/6231368521/VacQ/internal/services"
	"github.com/6231368521/VacQ/internal/store"
)

// Handler groups the HTTP endpoints and their collaborators.
type Handler struct {
	Appointments  *service.AppointmentService
	Hospitals     *store.HospitalStore
	Users         *store.UserStore
	Notifications *services.NotificationService
	Log           *zap.Logger
}

func NewHandler(appointments *service.AppointmentService, hospitals *store.HospitalStore, users *store.UserStore, notifications *services.NotificationService, log *zap.Logger) *Handler {
	return &Handler{
		Appointments:  appointments,
		Hospitals:     hospitals,
		Users:         users,
		Notifications: notifications,
		Log:           log,
	}
}

// caller reconstructs the authenticated identity placed in the context by
// the auth middleware. Responds 401 itself when the identity is unusable.
func (h *Handler) caller(c *gin.Context) (service.Caller, bool) {
	idVal, _ := c.Get(middleware.ContextUserID)
	roleVal, _ := c.Get(middleware.ContextUserRole)

	idHex, _ := idVal.(string)
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Not authorized to access this route")
		return service.Caller{}, false
	}
	role, _ := roleVal.(models.Role)
	return service.Caller{ID: id, Role: role}, true
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func okCount(c *gin.Context, count int, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "msg": msg})
}

// serverError logs the underlying failure and answers generically, without
// leaking internal detail.
func (h *Handler) serverError(c *gin.Context, err error, msg string) {
	h.Log.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
	fail(c, http.StatusInternalServerError, msg)
}
