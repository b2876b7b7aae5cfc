package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/shopspring/decimal"

	"github.com/pasabuyph/backend/internal/http/handlers/common"
	"github.com/pasabuyph/backend/internal/service"
	"github.com/pasabuyph/backend/internal/storage"
)

// Accepted proof image types.
var allowedProofMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Accepted proof file extensions.
var allowedProofExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// PaymentHandler is the HTTP layer over errand payment settlement.
type PaymentHandler struct {
	payments *service.PaymentService
	proofs   *storage.ProofStorage
}

// NewPaymentHandler creates the handler.
func NewPaymentHandler(payments *service.PaymentService, proofs *storage.ProofStorage) *PaymentHandler {
	return &PaymentHandler{payments: payments, proofs: proofs}
}

// Submit handles POST /payments/submit. The runner declares the spend for an
// accepted errand as multipart form data with an optional proof image.
func (h *PaymentHandler) Submit(c *gin.Context) {
	runnerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	errandID, err := uuid.Parse(c.PostForm("errand_id"))
	if err != nil {
		common.RespondBadRequest(c, "invalid errand_id")
		return
	}

	amount, err := decimal.NewFromString(c.PostForm("amount"))
	if err != nil {
		common.RespondBadRequest(c, "invalid amount")
		return
	}

	method := c.PostForm("payment_method")

	var proofRef *string
	if file, err := c.FormFile("proof"); err == nil {
		relative, err := saveProof(c, h.proofs, runnerID, file)
		if err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
		proofRef = &relative
	}

	payment, err := h.payments.Submit(c.Request.Context(), runnerID, errandID, amount, proofRef, method)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// Verify handles PATCH /payments/:errandId/verify. The customer confirms or
// rejects the pending payment.
func (h *PaymentHandler) Verify(c *gin.Context) {
	customerID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	errandID, err := common.ParseUUIDParam(c, "errandId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Verified bool   `json:"verified"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.Verify(c.Request.Context(), customerID, errandID, req.Verified, strings.TrimSpace(req.Reason))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": payment,
		"status":  payment.StatusDisplay(),
	})
}

// GetByErrand handles GET /payments/:errandId.
func (h *PaymentHandler) GetByErrand(c *gin.Context) {
	errandID, err := common.ParseUUIDParam(c, "errandId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.payments.GetByErrand(c.Request.Context(), errandID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": payment,
		"status":  payment.StatusDisplay(),
	})
}

// saveProof validates the uploaded image by magic bytes and stores it.
// Shared by errand payment and balance repayment submissions.
func saveProof(c *gin.Context, proofs *storage.ProofStorage, userID uuid.UUID, file *multipart.FileHeader) (string, error) {
	if file.Size == 0 {
		return "", fmt.Errorf("proof file must not be empty")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedProofExtensions[ext] {
		return "", fmt.Errorf("unsupported proof format, allowed: .jpg, .jpeg, .png, .webp")
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open proof file")
	}
	defer src.Close()

	// Sniff the magic bytes; the extension alone is not trusted.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read proof file")
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("could not detect proof file type, only images are allowed")
	}

	if !allowedProofMimeTypes[kind.MIME.Value] {
		return "", fmt.Errorf("unsupported proof type (%s), only images are allowed", kind.MIME.Value)
	}

	// .jpg and .jpeg name the same format.
	expectedExt := "." + kind.Extension
	if ext != expectedExt && !(ext == ".jpg" && expectedExt == ".jpeg") && !(ext == ".jpeg" && expectedExt == ".jpg") {
		return "", fmt.Errorf("proof extension (%s) does not match its real type (%s)", ext, expectedExt)
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to rewind proof file")
		}
	}

	relative, _, err := proofs.Save(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relative), nil
}
