package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/sjperalta/pratiche-api/internal/services"
)

// RateHandler exposes the statutory rate table
type RateHandler struct {
	rateService *services.RateService
}

func NewRateHandler(rateService *services.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// @Summary List Rates
// @Tags Rates
// @Produce json
// @Param type query string false "legal or moratory"
// @Success 200 {object} object{rates=[]models.InterestRate}
// @Security BearerAuth
// @Router /rates [get]
func (h *RateHandler) Index(c *gin.Context) {
	rates, err := h.rateService.List(c.Request.Context(), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

// @Summary Resolve Rate
// @Description Return the rate of a type in force on a date
// @Tags Rates
// @Produce json
// @Param type query string true "legal or moratory"
// @Param date query string true "Reference date (YYYY-MM-DD)"
// @Success 200 {object} RateResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /rates/resolve [get]
func (h *RateHandler) Resolve(c *gin.Context) {
	on, err := civil.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	res, err := h.rateService.Resolve(c.Request.Context(), c.Query("type"), on)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rateResponse(res))
}
