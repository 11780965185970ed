package handler

import (
	"time"

	"github.com/hitoshi/medconfirm/internal/dose"
	"github.com/hitoshi/medconfirm/internal/medication"
	"github.com/hitoshi/medconfirm/internal/model"
)

// userResponse は利用者情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

type medicationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Dosage       *string   `json:"dosage"`
	Instructions *string   `json:"instructions"`
	DependantID  string    `json:"dependant_id"`
	CarerID      string    `json:"carer_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMedicationResponse(m *model.Medication) medicationResponse {
	return medicationResponse{
		ID:           m.ID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Instructions: m.Instructions,
		DependantID:  m.DependantID,
		CarerID:      m.CarerID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type scheduleResponse struct {
	ID           string `json:"id"`
	MedicationID string `json:"medication_id"`
	TimeOfDay    string `json:"time_of_day"`
	DaysOfWeek   []int  `json:"days_of_week"`
	Active       bool   `json:"active"`
}

// createdMedicationResponse は作成した薬とそのスケジュール。
type createdMedicationResponse struct {
	medicationResponse
	Schedules []scheduleResponse `json:"schedules"`
}

func toCreatedMedicationResponse(d *medication.Detail) createdMedicationResponse {
	resp := createdMedicationResponse{
		medicationResponse: toMedicationResponse(d.Medication),
		Schedules:          make([]scheduleResponse, 0, len(d.Schedules)),
	}
	for _, s := range d.Schedules {
		resp.Schedules = append(resp.Schedules, scheduleResponse{
			ID:           s.ID,
			MedicationID: s.MedicationID,
			TimeOfDay:    s.TimeOfDay,
			DaysOfWeek:   s.DaysOfWeek,
			Active:       s.Active,
		})
	}
	return resp
}

type doseResponse struct {
	CanTake        bool   `json:"can_take"`
	IsOverdue      bool   `json:"is_overdue"`
	Takeable       bool   `json:"takeable"`
	ScheduledToday bool   `json:"scheduled_today"`
	TakenToday     bool   `json:"taken_today"`
	TooEarly       bool   `json:"too_early"`
	NextDose       string `json:"next_dose"`
	AvailableFrom  string `json:"available_from"`
}

func toDoseResponse(s *dose.Status) *doseResponse {
	if s == nil {
		return nil
	}
	return &doseResponse{
		CanTake:        s.CanTake,
		IsOverdue:      s.IsOverdue,
		Takeable:       s.Takeable,
		ScheduledToday: s.ScheduledToday,
		TakenToday:     s.TakenToday,
		TooEarly:       s.TooEarly,
		NextDose:       s.NextDose,
		AvailableFrom:  s.AvailableFrom,
	}
}

// scheduleRowResponse は薬とスケジュールを結合した一覧の1行。
// スケジュールの無い薬では schedule_id 以下が null になる。
type scheduleRowResponse struct {
	medicationResponse
	ScheduleID *string       `json:"schedule_id"`
	TimeOfDay  *string       `json:"time_of_day"`
	DaysOfWeek []int         `json:"days_of_week"`
	Active     *bool         `json:"active"`
	Dose       *doseResponse `json:"dose,omitempty"`
}

func toScheduleRowResponses(views []medication.ScheduleView) []scheduleRowResponse {
	out := make([]scheduleRowResponse, 0, len(views))
	for i := range views {
		v := &views[i]
		out = append(out, scheduleRowResponse{
			medicationResponse: toMedicationResponse(&v.Medication),
			ScheduleID:         v.ScheduleID,
			TimeOfDay:          v.TimeOfDay,
			DaysOfWeek:         v.DaysOfWeek,
			Active:             v.Active,
			Dose:               toDoseResponse(v.Dose),
		})
	}
	return out
}

type confirmationResponse struct {
	ID               string     `json:"id"`
	DependantID      string     `json:"dependant_id"`
	MedicationID     string     `json:"medication_id"`
	ScheduleID       *string    `json:"schedule_id"`
	PhotoPath        string     `json:"photo_path"`
	TakenAt          time.Time  `json:"taken_at"`
	ConfirmedByCarer bool       `json:"confirmed_by_carer"`
	CarerConfirmedAt *time.Time `json:"carer_confirmed_at"`
	Notes            *string    `json:"notes"`
}

func toConfirmationResponse(c *model.MedicationConfirmation) confirmationResponse {
	return confirmationResponse{
		ID:               c.ID,
		DependantID:      c.DependantID,
		MedicationID:     c.MedicationID,
		ScheduleID:       c.ScheduleID,
		PhotoPath:        c.PhotoPath,
		TakenAt:          c.TakenAt,
		ConfirmedByCarer: c.ConfirmedByCarer,
		CarerConfirmedAt: c.CarerConfirmedAt,
		Notes:            c.Notes,
	}
}

type pendingConfirmationResponse struct {
	confirmationResponse
	MedicationName string `json:"medication_name"`
	DependantName  string `json:"dependant_name"`
	PhotoURL       string `json:"photo_url"`
}

func toPendingResponses(pending []model.PendingConfirmation) []pendingConfirmationResponse {
	out := make([]pendingConfirmationResponse, 0, len(pending))
	for i := range pending {
		p := &pending[i]
		out = append(out, pendingConfirmationResponse{
			confirmationResponse: toConfirmationResponse(&p.MedicationConfirmation),
			MedicationName:       p.MedicationName,
			DependantName:        p.DependantName,
			PhotoURL:             p.PhotoURL,
		})
	}
	return out
}

type recentConfirmationResponse struct {
	MedicationID     string    `json:"medication_id"`
	ScheduleID       *string   `json:"schedule_id"`
	TakenAt          time.Time `json:"taken_at"`
	ConfirmedByCarer bool      `json:"confirmed_by_carer"`
	TimeOfDay        *string   `json:"time_of_day"`
	DaysOfWeek       []int     `json:"days_of_week"`
}

func toRecentResponses(recent []model.RecentConfirmation) []recentConfirmationResponse {
	out := make([]recentConfirmationResponse, 0, len(recent))
	for _, c := range recent {
		out = append(out, recentConfirmationResponse{
			MedicationID:     c.MedicationID,
			ScheduleID:       c.ScheduleID,
			TakenAt:          c.TakenAt,
			ConfirmedByCarer: c.ConfirmedByCarer,
			TimeOfDay:        c.TimeOfDay,
			DaysOfWeek:       c.DaysOfWeek,
		})
	}
	return out
}
