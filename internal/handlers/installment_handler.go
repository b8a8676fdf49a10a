package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/services"
	"github.com/sjperalta/pratiche-api/internal/storage"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// InstallmentHandler registers and reverses installment payments
type InstallmentHandler struct {
	paymentService *services.PaymentService
	auditService   *services.AuditService
	storage        *storage.LocalStorage
}

func NewInstallmentHandler(paymentService *services.PaymentService, auditService *services.AuditService, storage *storage.LocalStorage) *InstallmentHandler {
	return &InstallmentHandler{paymentService: paymentService, auditService: auditService, storage: storage}
}

// @Summary Register Payment
// @Description Mark an installment paid and post its principal and interest to the case ledger
// @Tags Installments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param request body PaymentRequest true "Payment details"
// @Success 200 {object} object{installment=models.InstallmentResponse,message=string}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /installments/{installment_id}/pay [post]
func (h *InstallmentHandler) Pay(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installment ID"})
		return
	}
	var req PaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		respondBindError(c, err)
		return
	}
	details, err := req.ToDetails()
	if err != nil {
		respondError(c, err)
		return
	}

	inst, err := h.paymentService.RegisterPayment(requestContext(c), id, details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment": inst.ToResponse(), "message": "Payment registered"})
}

// @Summary Reverse Payment
// @Description Undo an installment payment and remove its ledger entries
// @Tags Installments
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Success 200 {object} object{installment=models.InstallmentResponse,message=string}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /installments/{installment_id}/reverse [post]
func (h *InstallmentHandler) Reverse(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installment ID"})
		return
	}

	inst, err := h.paymentService.ReversePayment(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment": inst.ToResponse(), "message": "Payment reversed"})
}

// @Summary Installment Audit Trail
// @Tags Installments
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Success 200 {object} object{audits=[]models.AuditLog}
// @Security BearerAuth
// @Router /installments/{installment_id}/audits [get]
func (h *InstallmentHandler) Audits(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installment ID"})
		return
	}

	logs, err := h.auditService.History(c.Request.Context(), models.AuditEntityInstallment, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": logs})
}

// @Summary Upload Receipt
// @Description Store a payment receipt and return its reference for payment registration
// @Tags Installments
// @Accept multipart/form-data
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param receipt formData file true "Receipt File"
// @Success 201 {object} object{receipt_ref=string}
// @Security BearerAuth
// @Router /installments/{installment_id}/receipt [post]
func (h *InstallmentHandler) UploadReceipt(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installment ID"})
		return
	}
	if _, err := h.paymentService.GetInstallment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	if header.Size > storage.MaxFileSize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}
	if !storage.IsValidContentType(header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}

	ref, err := h.storage.Save(file, header.Filename, "receipts", time.Now())
	if err != nil {
		logger.Error("Failed to store receipt", "installment_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"receipt_ref": ref})
}

// @Summary Download Receipt
// @Tags Installments
// @Produce application/octet-stream
// @Param installment_id path int true "Installment ID"
// @Success 200 {file} file "receipt"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /installments/{installment_id}/receipt [get]
func (h *InstallmentHandler) DownloadReceipt(c *gin.Context) {
	id, ok := parseID(c, "installment_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installment ID"})
		return
	}

	inst, err := h.paymentService.GetInstallment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if inst.ReceiptRef == nil || !h.storage.Exists(*inst.ReceiptRef) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found"})
		return
	}

	fullPath, err := h.storage.FullPath(*inst.ReceiptRef)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found"})
		return
	}
	c.FileAttachment(fullPath, fmt.Sprintf("receipt_installment_%d%s", inst.ID, filepath.Ext(fullPath)))
}
