package handler

import (
	"github.com/gin-gonic/gin"

	valuationapp "github.com/tradein/backend/internal/application/valuation"
	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/interfaces/http/middleware"
	"github.com/tradein/backend/internal/interfaces/http/router"
)

// VehicleHandler serves the valuation gateway endpoints
type VehicleHandler struct {
	BaseHandler
	gateway *valuationapp.GatewayService
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(gateway *valuationapp.GatewayService) *VehicleHandler {
	return &VehicleHandler{gateway: gateway}
}

// Routes returns the /vehicle route group
func (h *VehicleHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("vehicle", "/vehicle").
		POST("/vin", h.DecodeVIN).
		GET("/makes", h.ListMakes).
		GET("/models", h.ListModels).
		GET("/trims", h.ListTrims).
		GET("/manual", h.ManualSearch).
		POST("/manual", h.ManualLookup)
	g.Group("gid", "/gid").
		GET("/:gid", h.GetPricing).
		GET("/:gid/value", h.GetValue).
		GET("/:gid/mileage/:mileage", h.GetMileageAdjustment)
	return g
}

// DecodeVIN handles POST /vehicle/vin
func (h *VehicleHandler) DecodeVIN(c *gin.Context) {
	var req valuationapp.DecodeVINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	candidates, err := h.gateway.DecodeVIN(c.Request.Context(), req.VIN)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuationapp.ToVinCandidateResponses(candidates))
}

// GetPricing handles GET /vehicle/gid/:gid
func (h *VehicleHandler) GetPricing(c *gin.Context) {
	pricing, err := h.gateway.GetPricing(c.Request.Context(), c.Param("gid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuationapp.ToPricingResponse(pricing))
}

// GetValue handles GET /vehicle/gid/:gid/value
func (h *VehicleHandler) GetValue(c *gin.Context) {
	value, err := h.gateway.GetValue(c.Request.Context(), c.Param("gid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, value)
}

// GetMileageAdjustment handles GET /vehicle/gid/:gid/mileage/:mileage
func (h *VehicleHandler) GetMileageAdjustment(c *gin.Context) {
	mileage, err := valuation.ParseMileage("get mileage adjustment", c.Param("mileage"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	adjustment, err := h.gateway.GetMileageAdjustment(c.Request.Context(), c.Param("gid"), mileage)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuationapp.ToMileageAdjustmentResponse(adjustment))
}

// ListMakes handles GET /vehicle/makes?year=
func (h *VehicleHandler) ListMakes(c *gin.Context) {
	year, err := valuation.ParseYear("list makes", c.Query("year"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	makes, err := h.gateway.ListMakes(c.Request.Context(), year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuationapp.ToCatalogOptionResponses(makes))
}

// ListModels handles GET /vehicle/models?year=&make=
func (h *VehicleHandler) ListModels(c *gin.Context) {
	year, err := valuation.ParseYear("list models", c.Query("year"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	models, err := h.gateway.ListModels(c.Request.Context(), year, c.Query("make"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if models == nil {
		models = []string{}
	}
	h.Success(c, models)
}

// ListTrims handles GET /vehicle/trims?year=&make=&model=
func (h *VehicleHandler) ListTrims(c *gin.Context) {
	year, err := valuation.ParseYear("list trims", c.Query("year"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	trims, err := h.gateway.ListTrims(c.Request.Context(), year, c.Query("make"), c.Query("model"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuationapp.ToTrimOptionResponses(trims))
}

// ManualSearch handles GET /vehicle/manual?year=&make=&model=
func (h *VehicleHandler) ManualSearch(c *gin.Context) {
	year, err := valuation.ParseYear("manual search", c.Query("year"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	raw, err := h.gateway.ManualSearch(c.Request.Context(), year, c.Query("make"), c.Query("model"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, raw)
}

// ManualLookup handles POST /vehicle/manual
func (h *VehicleHandler) ManualLookup(c *gin.Context) {
	var req valuationapp.ManualLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	raw, err := h.gateway.ManualLookup(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, raw)
}
