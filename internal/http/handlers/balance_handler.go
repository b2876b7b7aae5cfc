package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pasabuyph/backend/internal/http/handlers/common"
	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/service"
	"github.com/pasabuyph/backend/internal/storage"
	"github.com/pasabuyph/backend/internal/validation"
)

// BalanceHandler is the HTTP layer over the runner debt ledger and its
// lump-sum repayments.
type BalanceHandler struct {
	ledgers    *service.LedgerService
	repayments *service.RepaymentService
	proofs     *storage.ProofStorage
}

// NewBalanceHandler creates the handler.
func NewBalanceHandler(ledgers *service.LedgerService, repayments *service.RepaymentService, proofs *storage.ProofStorage) *BalanceHandler {
	return &BalanceHandler{ledgers: ledgers, repayments: repayments, proofs: proofs}
}

// GetBalance handles GET /balance. Returns the runner's ledger snapshot with
// the derived repayment state.
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	runnerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	now := time.Now()
	ledger, status, err := h.ledgers.PaymentStatus(c.Request.Context(), runnerID, now)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ledger":         ledger,
		"payment_status": status,
		"display":        ledger.StatusDisplay(now),
	})
}

// SubmitRepayment handles POST /balance/repay. The runner pays their full
// outstanding balance in one go; multipart form with an optional proof image.
func (h *BalanceHandler) SubmitRepayment(c *gin.Context) {
	runnerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	method := c.PostForm("payment_method")

	var notes *string
	if raw := strings.TrimSpace(c.PostForm("notes")); raw != "" {
		if err := validation.ValidateLength("notes", raw, 1, validation.MaxNotesLength); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
		notes = &raw
	}

	var proofRef *string
	if file, err := c.FormFile("proof"); err == nil {
		relative, err := saveProof(c, h.proofs, runnerID, file)
		if err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
		proofRef = &relative
	}

	payment, err := h.repayments.Submit(c.Request.Context(), runnerID, proofRef, method, notes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ApproveRepayment handles PATCH /balance/payments/:id/approve (admin only).
func (h *BalanceHandler) ApproveRepayment(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Notes *string `json:"notes"`
	}
	// The body is optional for approvals.
	_ = c.ShouldBindJSON(&req)

	payment, ledger, err := h.repayments.Approve(c.Request.Context(), adminID, id, req.Notes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": payment,
		"ledger":  ledger,
	})
}

// RejectRepayment handles PATCH /balance/payments/:id/reject (admin only).
func (h *BalanceHandler) RejectRepayment(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "a rejection reason is required")
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if err := validation.ValidateLength("reason", reason, 1, validation.MaxRejectionReason); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.repayments.Reject(c.Request.Context(), adminID, id, reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListRepayments handles GET /balance/payments. Runners see their own
// history; admins see the pending review queue via ?pending=true.
func (h *BalanceHandler) ListRepayments(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)

	if c.Query("pending") == "true" {
		role, err := common.CurrentUserRole(c)
		if err != nil || role != models.RoleAdmin {
			common.RespondForbidden(c, "only admins can list pending balance payments")
			return
		}
		payments, err := h.repayments.ListPending(c.Request.Context(), limit, offset)
		if err != nil {
			common.RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payments": payments})
		return
	}

	payments, err := h.repayments.ListByRunner(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
