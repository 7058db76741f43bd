package dto

import "github.com/noah-isme/pts-payroll-api/internal/models"

// SubmitRequestPayload is the body of POST /requests. CitizenID is only honoured for officers
// filing on behalf of an employee.
type SubmitRequestPayload struct {
	CitizenID     string             `json:"citizenId" validate:"omitempty,len=13,numeric"`
	RequestType   models.RequestType `json:"requestType" validate:"required,oneof=NEW_ENTITLEMENT RATE_CHANGE EDIT_INFO"`
	MasterRateID  int64              `json:"masterRateId" validate:"required,gt=0"`
	EffectiveDate string             `json:"effectiveDate" validate:"required,datetime=2006-01-02"`
	Reason        string             `json:"reason" validate:"max=1000"`
}

// DecisionPayload carries the approver's comment. Reject and return require one.
type DecisionPayload struct {
	Comment string `json:"comment" validate:"max=1000"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status    []models.RequestStatus
	CitizenID string
	Mine      bool
	Page      int
	PageSize  int
}
