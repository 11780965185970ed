package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/medconfirm/internal/medication"
	"github.com/hitoshi/medconfirm/internal/model"
)

// MedicationServiceInterface は薬ハンドラーが必要とするサービスインターフェース。
type MedicationServiceInterface interface {
	Create(ctx context.Context, carerID string, in medication.CreateInput) (*medication.Detail, error)
	ReplaceSchedule(ctx context.Context, carerID, medicationID string, schedules []model.ScheduleInput) error
	ListMine(ctx context.Context, dependantID string) ([]medication.ScheduleView, error)
	ListForCarer(ctx context.Context, carerID, dependantID string) ([]medication.ScheduleView, error)
}

// MedicationHandler は薬とスケジュールのHTTPハンドラー。
type MedicationHandler struct {
	service MedicationServiceInterface
}

// NewMedicationHandler はMedicationHandlerを生成する。
func NewMedicationHandler(service MedicationServiceInterface) *MedicationHandler {
	return &MedicationHandler{service: service}
}

type scheduleRequest struct {
	TimeOfDay  string `json:"time_of_day"`
	DaysOfWeek []int  `json:"days_of_week"`
}

type createMedicationRequest struct {
	Name         string            `json:"name"`
	Dosage       *string           `json:"dosage"`
	Instructions *string           `json:"instructions"`
	DependantID  string            `json:"dependantId"`
	Schedules    []scheduleRequest `json:"schedules"`
}

type replaceScheduleRequest struct {
	Schedules *[]scheduleRequest `json:"schedules"`
}

type createMedicationResponse struct {
	Message    string                    `json:"message"`
	Medication createdMedicationResponse `json:"medication"`
}

func toScheduleInputs(reqs []scheduleRequest) []model.ScheduleInput {
	out := make([]model.ScheduleInput, 0, len(reqs))
	for _, s := range reqs {
		out = append(out, model.ScheduleInput{TimeOfDay: s.TimeOfDay, DaysOfWeek: s.DaysOfWeek})
	}
	return out
}

// ListMine は被介護者自身の薬とスケジュールを服用判定付きで返す。
// GET /medications/mine
func (h *MedicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	views, err := h.service.ListMine(r.Context(), p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleRowResponses(views))
}

// ListForDependant は介護者が担当する被介護者の薬とスケジュールを返す。
// GET /medications/dependant/{dependantId}
func (h *MedicationHandler) ListForDependant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	views, err := h.service.ListForCarer(r.Context(), p.UserID, chi.URLParam(r, "dependantId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleRowResponses(views))
}

// Create は薬を登録する。
// POST /medications
func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createMedicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	detail, err := h.service.Create(r.Context(), p.UserID, medication.CreateInput{
		Name:         req.Name,
		Dosage:       req.Dosage,
		Instructions: req.Instructions,
		DependantID:  req.DependantID,
		Schedules:    toScheduleInputs(req.Schedules),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createMedicationResponse{
		Message:    "Medication created successfully",
		Medication: toCreatedMedicationResponse(detail),
	})
}

// ReplaceSchedule は薬のスケジュールを入れ替える。
// PUT /medications/{medicationId}/schedule
func (h *MedicationHandler) ReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req replaceScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Schedules == nil {
		handleServiceError(w, r, model.NewValidationError("Schedules are required"))
		return
	}

	if err := h.service.ReplaceSchedule(r.Context(), p.UserID, chi.URLParam(r, "medicationId"), toScheduleInputs(*req.Schedules)); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Schedule updated successfully"})
}
