package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traceroot-ai/sim/internal/api/dto"
	ierr "github.com/traceroot-ai/sim/internal/errors"
	"github.com/traceroot-ai/sim/internal/logger"
	"github.com/traceroot-ai/sim/internal/service"
	"github.com/traceroot-ai/sim/internal/validator"
)

type UsageHandler struct {
	usageLimit service.UsageLimitService
	overage    service.OverageService
	logger     *logger.Logger
}

func NewUsageHandler(
	usageLimit service.UsageLimitService,
	overage service.OverageService,
	logger *logger.Logger,
) *UsageHandler {
	return &UsageHandler{
		usageLimit: usageLimit,
		overage:    overage,
		logger:     logger,
	}
}

// GetUserUsage returns the usage dashboard view for a user.
func (h *UsageHandler) GetUserUsage(c *gin.Context) {
	userID := c.Param("id")

	resp, err := h.usageLimit.GetUsageData(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUserOverage returns the current billable overage for a user.
func (h *UsageHandler) GetUserOverage(c *gin.Context) {
	userID := c.Param("id")

	result, err := h.overage.CalculateUserOverage(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOrganizationOverage returns the pooled overage breakdown for an
// organization.
func (h *UsageHandler) GetOrganizationOverage(c *gin.Context) {
	organizationID := c.Param("id")

	result, err := h.overage.CalculateOrganizationOverage(c.Request.Context(), organizationID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateUserUsageLimit changes a user's self-serve usage cap.
func (h *UsageHandler) UpdateUserUsageLimit(c *gin.Context) {
	userID := c.Param("id")

	var req dto.UpdateUsageLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	if err := h.usageLimit.UpdateUserUsageLimit(c.Request.Context(), userID, req.Limit); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateOrganizationUsageLimit changes an organization's pooled usage cap.
func (h *UsageHandler) UpdateOrganizationUsageLimit(c *gin.Context) {
	organizationID := c.Param("id")

	var req dto.UpdateUsageLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	if err := h.usageLimit.UpdateOrganizationUsageLimit(c.Request.Context(), organizationID, req.Limit); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
