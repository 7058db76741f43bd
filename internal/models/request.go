package models

import "time"

// RequestType enumerates PTS request categories.
type RequestType string

const (
	RequestTypeNewEntitlement RequestType = "NEW_ENTITLEMENT"
	RequestTypeRateChange     RequestType = "RATE_CHANGE"
	RequestTypeEditInfo       RequestType = "EDIT_INFO"
)

// RequestStatus captures workflow states for PTS requests.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusReturned  RequestStatus = "RETURNED"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected || s == RequestStatusCancelled
}

// RequestActionType enumerates the actions recorded against a request.
type RequestActionType string

const (
	ActionSubmit   RequestActionType = "SUBMIT"
	ActionApprove  RequestActionType = "APPROVE"
	ActionReject   RequestActionType = "REJECT"
	ActionReturn   RequestActionType = "RETURN"
	ActionCancel   RequestActionType = "CANCEL"
	ActionResubmit RequestActionType = "RESUBMIT"
)

// FinalApprovalStep is the last step of the approval chain.
const FinalApprovalStep = 6

// ApprovalSteps maps each approval step to the role allowed to act on it.
var ApprovalSteps = map[int]UserRole{
	1: RoleWardHead,
	2: RoleDeptHead,
	3: RolePTSOfficer,
	4: RoleHRHead,
	5: RoleFinanceHead,
	6: RoleDirector,
}

// StepForRole returns the approval step handled by role, or 0.
func StepForRole(role UserRole) int {
	for step, r := range ApprovalSteps {
		if r == role {
			return step
		}
	}
	return 0
}

// PTSRequest is an employee's request for a PTS entitlement.
type PTSRequest struct {
	ID            string        `db:"id" json:"id"`
	CitizenID     string        `db:"citizen_id" json:"citizenId"`
	RequestedBy   string        `db:"requested_by" json:"requestedBy"`
	RequestType   RequestType   `db:"request_type" json:"requestType"`
	MasterRateID  int64         `db:"master_rate_id" json:"masterRateId"`
	EffectiveDate time.Time     `db:"effective_date" json:"effectiveDate"`
	Status        RequestStatus `db:"status" json:"status"`
	CurrentStep   int           `db:"current_step" json:"currentStep"`
	Reason        string        `db:"reason" json:"reason"`
	SubmittedAt   time.Time     `db:"submitted_at" json:"submittedAt"`
	StepStartedAt time.Time     `db:"step_started_at" json:"stepStartedAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// RequestAction is one recorded transition of a request.
type RequestAction struct {
	ID        string            `db:"id" json:"id"`
	RequestID string            `db:"request_id" json:"requestId"`
	Step      int               `db:"step" json:"step"`
	ActorID   string            `db:"actor_id" json:"actorId"`
	Action    RequestActionType `db:"action" json:"action"`
	Comment   *string           `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Status      []RequestStatus
	Step        int
	RequestedBy string
	CitizenID   string
	Limit       int
	Offset      int
}

// RequestDetail bundles a request with its action history.
type RequestDetail struct {
	PTSRequest
	Actions []RequestAction `json:"actions"`
}
