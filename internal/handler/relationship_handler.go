package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/medconfirm/internal/model"
)

// RelationshipServiceInterface は介護関係ハンドラーが必要とするサービスインターフェース。
type RelationshipServiceInterface interface {
	ListDependants(ctx context.Context, carerID string) ([]*model.User, error)
	AddDependantByEmail(ctx context.Context, carerID, email string) (*model.User, error)
}

// RelationshipHandler は介護関係のHTTPハンドラー。
type RelationshipHandler struct {
	service RelationshipServiceInterface
}

// NewRelationshipHandler はRelationshipHandlerを生成する。
func NewRelationshipHandler(service RelationshipServiceInterface) *RelationshipHandler {
	return &RelationshipHandler{service: service}
}

type addDependantRequest struct {
	DependantEmail string `json:"dependantEmail"`
}

type addDependantResponse struct {
	Message   string       `json:"message"`
	Dependant userResponse `json:"dependant"`
}

// ListDependants は介護者に紐付く被介護者を返す。
// GET /relationships/dependants
func (h *RelationshipHandler) ListDependants(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListDependants(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp := toUserResponse(u)
		resp.Role = ""
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// AddDependant はメールアドレスで被介護者を紐付ける。
// POST /relationships/add-dependant
func (h *RelationshipHandler) AddDependant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req addDependantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dep, err := h.service.AddDependantByEmail(r.Context(), p.UserID, req.DependantEmail)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, addDependantResponse{
		Message:   "Dependant added successfully",
		Dependant: userResponse{ID: dep.ID, Email: dep.Email, Name: dep.Name},
	})
}
