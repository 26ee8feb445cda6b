package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/storage"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProofHandler обработчик для чеков об оплате
type ProofHandler struct {
	svc   Lifecycle
	files storage.FileStore
	log   *logger.Logger
}

// NewProofHandler создает новый обработчик чеков
func NewProofHandler(svc Lifecycle, files storage.FileStore, log *logger.Logger) *ProofHandler {
	return &ProofHandler{svc: svc, files: files, log: log}
}

// SubmitProof принимает multipart форму с полями file и installment_index.
// Файл сохраняется только после предварительной проверки подписки;
// при ошибке самой записи в журнал он не удаляется.
func (h *ProofHandler) SubmitProof(c *gin.Context) {
	scope, ok := studentScope(c)
	if !ok {
		return
	}
	subscriptionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.PostForm("installment_index"))
	if err != nil {
		respondKind(c, domain.KindValidation, "installment_index must be an integer")
		return
	}

	if err := h.svc.CheckSubmission(c.Request.Context(), scope, subscriptionID, index); err != nil {
		respondError(c, h.log, err, "Failed to submit proof")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondKind(c, domain.KindInvalidProof, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondKind(c, domain.KindInvalidProof, "failed to read uploaded file")
		return
	}
	defer file.Close()

	reference, err := h.files.Save(c.Request.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyFile) || errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
			respondKind(c, domain.KindInvalidProof, err.Error())
			return
		}
		respondError(c, h.log, err, "Failed to store proof file")
		return
	}

	proof, err := h.svc.SubmitProof(c.Request.Context(), scope, subscriptionID, index, reference)
	if err != nil {
		respondError(c, h.log, err, "Failed to submit proof")
		return
	}
	c.JSON(http.StatusCreated, proof)
}

// ListProofs история чеков подписки текущего ученика
func (h *ProofHandler) ListProofs(c *gin.Context) {
	scope, ok := studentScope(c)
	if !ok {
		return
	}
	subscriptionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	proofs, err := h.svc.ListProofs(c.Request.Context(), scope, subscriptionID)
	if err != nil {
		respondError(c, h.log, err, "Failed to list proofs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": proofs})
}

// ApproveProof одобряет чек
func (h *ProofHandler) ApproveProof(c *gin.Context) {
	h.decide(c, h.svc.ApproveProof, "Failed to approve proof")
}

// RejectProof отклоняет чек
func (h *ProofHandler) RejectProof(c *gin.Context) {
	h.decide(c, h.svc.RejectProof, "Failed to reject proof")
}

type decideFunc func(ctx context.Context, scope service.Scope, proofID uuid.UUID) (*service.SubscriptionView, error)

func (h *ProofHandler) decide(c *gin.Context, fn decideFunc, fallback string) {
	scope, ok := coachScope(c)
	if !ok {
		return
	}
	proofID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := fn(c.Request.Context(), scope, proofID)
	if err != nil {
		respondError(c, h.log, err, fallback)
		return
	}
	c.JSON(http.StatusOK, view)
}
