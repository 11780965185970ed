package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/medconfirm/internal/confirmation"
	"github.com/hitoshi/medconfirm/internal/model"
)

// ConfirmationServiceInterface は服薬確認ハンドラーが必要とするサービスインターフェース。
type ConfirmationServiceInterface interface {
	Submit(ctx context.Context, dependantID string, in confirmation.SubmitInput) (*model.MedicationConfirmation, error)
	Confirm(ctx context.Context, carerID, confirmationID string, notes *string) (*model.MedicationConfirmation, error)
	ListPendingForCarer(ctx context.Context, carerID string) ([]model.PendingConfirmation, error)
	ListRecentForDependant(ctx context.Context, dependantID string) ([]model.RecentConfirmation, error)
}

// ConfirmationHandler は服薬確認のHTTPハンドラー。
type ConfirmationHandler struct {
	service ConfirmationServiceInterface
}

// NewConfirmationHandler はConfirmationHandlerを生成する。
func NewConfirmationHandler(service ConfirmationServiceInterface) *ConfirmationHandler {
	return &ConfirmationHandler{service: service}
}

type submitRequest struct {
	MedicationID string  `json:"medicationId"`
	ScheduleID   *string `json:"scheduleId"`
	PhotoPath    string  `json:"photoPath"`
}

type confirmRequest struct {
	Notes *string `json:"notes"`
}

type submitResponse struct {
	Message      string               `json:"message"`
	Confirmation confirmationResponse `json:"confirmation"`
}

// ListPending は介護者の承認待ち一覧を返す。
// GET /confirmations/pending
func (h *ConfirmationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	pending, err := h.service.ListPendingForCarer(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPendingResponses(pending))
}

// ListRecent は被介護者の直近24時間の承認済み服薬を返す。
// GET /confirmations/recent
func (h *ConfirmationHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	recent, err := h.service.ListRecentForDependant(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecentResponses(recent))
}

// Submit は服薬写真を提出する。
// POST /confirmations/submit
func (h *ConfirmationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.Submit(r.Context(), p.UserID, confirmation.SubmitInput{
		MedicationID: req.MedicationID,
		ScheduleID:   req.ScheduleID,
		PhotoPath:    req.PhotoPath,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Message:      "Photo submitted successfully",
		Confirmation: toConfirmationResponse(c),
	})
}

// Confirm は服薬確認を承認する。ボディは省略可。
// POST /confirmations/{confirmationId}/confirm
func (h *ConfirmationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	if _, err := h.service.Confirm(r.Context(), p.UserID, chi.URLParam(r, "confirmationId"), req.Notes); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Confirmation approved successfully"})
}
