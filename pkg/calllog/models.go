package calllog

import (
	"database/sql"

	"github.com/pitabwire/frame/data"
)

// Call outcomes stored on CallRecord.Outcome.
const (
	OutcomeCompleted      = "completed"
	OutcomeTransferred    = "transferred"
	OutcomeVoicemail      = "voicemail"
	OutcomeTransferFailed = "transfer_failed"
	OutcomeDialFailed     = "dial_failed"
)

// CallRecord is the persisted outcome of one outbound call session.
type CallRecord struct {
	data.BaseModel

	SessionID  string `gorm:"type:varchar(50);not null;index:idx_cr_session" json:"session_id"`
	RoomName   string `gorm:"type:varchar(255);not null"                      json:"room_name"`
	ToNumber   string `gorm:"type:varchar(32);not null;index:idx_cr_to"       json:"to_number"`
	TransferTo string `gorm:"type:varchar(32)"                                json:"transfer_to,omitempty"`
	ScriptName string `gorm:"type:varchar(255)"                               json:"script_name,omitempty"`

	Outcome     string `gorm:"type:varchar(30);not null;index:idx_cr_outcome" json:"outcome"`
	HangupCause string `gorm:"type:varchar(100)"                              json:"hangup_cause,omitempty"`
	SIPStatus   int    `gorm:"default:0"                                      json:"sip_status,omitempty"`

	AnsweredAt sql.NullTime `json:"answered_at,omitempty"`
	EndedAt    sql.NullTime `json:"ended_at,omitempty"`
	DurationMs int64        `gorm:"default:0" json:"duration_ms"`
}

func (CallRecord) TableName() string { return "call_records" }
