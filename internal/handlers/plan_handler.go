package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/middleware"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/services"
)

// PlanHandler serves the amortization plan lifecycle
type PlanHandler struct {
	planService   *services.PlanService
	exportService *services.ExportService
	auditService  *services.AuditService
}

func NewPlanHandler(planService *services.PlanService, exportService *services.ExportService, auditService *services.AuditService) *PlanHandler {
	return &PlanHandler{planService: planService, exportService: exportService, auditService: auditService}
}

// requestContext attributes the request's work to the authenticated user
func requestContext(c *gin.Context) context.Context {
	return services.WithActor(c.Request.Context(), middleware.GetUserID(c))
}

// RateResponse describes the rate a schedule was generated with
type RateResponse struct {
	Rate     string `json:"rate"`
	Base     string `json:"base"`
	RateID   *uint  `json:"rate_id,omitempty"`
	Fallback bool   `json:"fallback"`
}

func rateResponse(res *amortization.Resolution) *RateResponse {
	if res == nil {
		return nil
	}
	out := &RateResponse{Rate: res.Rate.String(), Base: res.Base.String(), Fallback: res.Fallback}
	if res.Source != nil {
		id := res.Source.ID
		out.RateID = &id
	}
	return out
}

func generatedResponse(g *services.GeneratedPlan) gin.H {
	body := gin.H{
		"plan": g.Plan.ToResponse(),
		"rate": rateResponse(g.Rate),
	}
	var warnings []string
	if g.Rate != nil && g.Rate.Fallback {
		warnings = append(warnings, "the moratory rate in force has expired; the latest published rate was used")
	}
	if g.NegativeShares > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"interest exceeds the installment on %d installments; the unpaid principal is due with the last one",
			g.NegativeShares))
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	if g.ReplacedPlanID != 0 {
		body["replaced_plan_id"] = g.ReplacedPlanID
	}
	return body
}

func (h *PlanHandler) bindPlan(c *gin.Context) (services.PlanParams, bool) {
	var req PlanRequest
	if err := BindNestedOrFlat(c, "plan", &req); err != nil {
		respondBindError(c, err)
		return services.PlanParams{}, false
	}
	params, err := req.ToParams()
	if err != nil {
		respondError(c, err)
		return services.PlanParams{}, false
	}
	return params, true
}

// @Summary Preview Plan
// @Description Resolve the rate and generate a schedule without saving it
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body PlanRequest true "Plan parameters"
// @Success 200 {object} object{plan=models.AmortizationPlanResponse,rate=RateResponse,warnings=[]string,replaced_plan_id=int}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /plans/preview [post]
func (h *PlanHandler) Preview(c *gin.Context) {
	params, ok := h.bindPlan(c)
	if !ok {
		return
	}

	generated, err := h.planService.Preview(requestContext(c), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, generatedResponse(generated))
}

// @Summary Create or Regenerate Plan
// @Description Generate the case's plan, replacing any existing plan and its installments
// @Tags Plans
// @Accept json
// @Produce json
// @Param case_id path int true "Case ID"
// @Param request body PlanRequest true "Plan parameters"
// @Success 201 {object} object{plan=models.AmortizationPlanResponse,rate=RateResponse,warnings=[]string,replaced_plan_id=int}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /cases/{case_id}/plan [post]
func (h *PlanHandler) Upsert(c *gin.Context) {
	caseID, ok := parseID(c, "case_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case ID"})
		return
	}
	params, ok := h.bindPlan(c)
	if !ok {
		return
	}

	generated, err := h.planService.CreateOrRegenerate(requestContext(c), caseID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, generatedResponse(generated))
}

// @Summary Get Case Plan
// @Description Get the case's plan with installments and payment summary
// @Tags Plans
// @Produce json
// @Param case_id path int true "Case ID"
// @Success 200 {object} object{plan=models.AmortizationPlanResponse}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /cases/{case_id}/plan [get]
func (h *PlanHandler) ShowByCase(c *gin.Context) {
	caseID, ok := parseID(c, "case_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case ID"})
		return
	}

	plan, err := h.planService.GetByCase(c.Request.Context(), caseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse()})
}

// @Summary Get Plan
// @Tags Plans
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} object{plan=models.AmortizationPlanResponse}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id} [get]
func (h *PlanHandler) Show(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}

	plan, err := h.planService.GetByID(c.Request.Context(), planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse()})
}

// @Summary Close Plan
// @Description Close an active plan with a positive or negative outcome
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Param request body ClosePlanRequest true "Outcome"
// @Success 200 {object} object{plan=models.AmortizationPlanResponse,message=string}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id}/close [post]
func (h *PlanHandler) Close(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}
	var req ClosePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	plan, err := h.planService.Close(requestContext(c), planID, req.Outcome, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse(), "message": "Plan closed"})
}

// @Summary Reopen Plan
// @Tags Plans
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} object{plan=models.AmortizationPlanResponse,message=string}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id}/reopen [post]
func (h *PlanHandler) Reopen(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}

	plan, err := h.planService.Reopen(requestContext(c), planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan.ToResponse(), "message": "Plan reopened"})
}

// @Summary Enter Principal
// @Description Post the plan's initial principal to the case ledger, once
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Param request body EnterPrincipalRequest false "Notes"
// @Success 201 {object} object{entry=models.LedgerEntry}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id}/enter_principal [post]
func (h *PlanHandler) EnterPrincipal(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}
	var req EnterPrincipalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	entry, err := h.planService.EnterPrincipal(requestContext(c), planID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// @Summary Delete Plan
// @Description Delete a plan and its installments; ledger entries are kept
// @Tags Plans
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /plans/{plan_id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}

	if err := h.planService.Delete(requestContext(c), planID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted"})
}

// @Summary Export Plan
// @Description Download the installment schedule
// @Tags Plans
// @Produce application/octet-stream
// @Param plan_id path int true "Plan ID"
// @Param format query string false "xlsx, pdf or csv" default(xlsx)
// @Success 200 {file} file "schedule"
// @Security BearerAuth
// @Router /plans/{plan_id}/export [get]
func (h *PlanHandler) Export(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}

	file, err := h.exportService.Export(c.Request.Context(), planID, c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// @Summary Plan Audit Trail
// @Tags Plans
// @Produce json
// @Param plan_id path int true "Plan ID"
// @Success 200 {object} object{audits=[]models.AuditLog}
// @Security BearerAuth
// @Router /plans/{plan_id}/audits [get]
func (h *PlanHandler) Audits(c *gin.Context) {
	planID, ok := parseID(c, "plan_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan ID"})
		return
	}

	logs, err := h.auditService.History(c.Request.Context(), models.AuditEntityPlan, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": logs})
}
