package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/service"
	"github.com/6231368521/VacQ/internal/store"
)

const defaultHospitalPageSize = 25

// GetHospitals is public: optional province filter plus page/limit
// pagination.
func (h *Handler) GetHospitals(c *gin.Context) {
	filter := store.HospitalFilter{
		Province: c.Query("province"),
		Limit:    defaultHospitalPageSize,
	}
	if v, err := strconv.ParseInt(c.Query("page"), 10, 64); err == nil && v > 0 {
		filter.Page = v
	}
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && v > 0 {
		filter.Limit = v
	}

	hospitals, err := h.Hospitals.Find(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err, "Cannot find Hospital")
		return
	}
	okCount(c, len(hospitals), hospitals)
}

func (h *Handler) GetHospital(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("hospitalId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}

	hospital, err := h.Hospitals.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(c, http.StatusNotFound, fmt.Sprintf("No hospital with the id of %s", id.Hex()))
			return
		}
		h.serverError(c, err, "Cannot find Hospital")
		return
	}
	ok(c, hospital)
}

type createHospitalRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address" binding:"required"`
	District    string `json:"district"`
	Province    string `json:"province"`
	Postalcode  string `json:"postalcode" binding:"omitempty,len=5"`
	Tel         string `json:"tel"`
	Region      string `json:"region"`
	Description string `json:"description"`
}

func (h *Handler) CreateHospital(c *gin.Context) {
	var req createHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Please add a name and address")
		return
	}

	hospital, err := h.Hospitals.Create(c.Request.Context(), &models.Hospital{
		Name:        req.Name,
		Address:     req.Address,
		District:    req.District,
		Province:    req.Province,
		Postalcode:  req.Postalcode,
		Tel:         req.Tel,
		Region:      req.Region,
		Description: req.Description,
	})
	if err != nil {
		h.serverError(c, err, "Cannot create Hospital")
		return
	}
	ok(c, hospital)
}

type updateHospitalRequest struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	District    *string `json:"district"`
	Province    *string `json:"province"`
	Postalcode  *string `json:"postalcode"`
	Tel         *string `json:"tel"`
	Region      *string `json:"region"`
	Description *string `json:"description"`
}

func (h *Handler) UpdateHospital(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("hospitalId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}

	var req updateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	hospital, err := h.Hospitals.UpdateByID(c.Request.Context(), id, store.HospitalUpdate{
		Name:        req.Name,
		Address:     req.Address,
		District:    req.District,
		Province:    req.Province,
		Postalcode:  req.Postalcode,
		Tel:         req.Tel,
		Region:      req.Region,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(c, http.StatusNotFound, fmt.Sprintf("No hospital with the id of %s", id.Hex()))
			return
		}
		h.serverError(c, err, "Cannot update Hospital")
		return
	}
	ok(c, hospital)
}

// DeleteHospital also removes every appointment booked at the hospital, in
// the same transaction.
func (h *Handler) DeleteHospital(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("hospitalId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}

	if err := h.Hospitals.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(c, http.StatusNotFound, fmt.Sprintf("No hospital with the id of %s", id.Hex()))
			return
		}
		h.serverError(c, err, "Cannot delete Hospital")
		return
	}
	ok(c, gin.H{})
}
