package models

import "time"

type AuditResult string

const (
	AuditSuccess AuditResult = "SUCCESS"
	AuditFail    AuditResult = "FAIL"
)

const (
	ActionTransferCreate = "TRANSFER_CREATE"
	ActionDepositConfirm = "DEPOSIT_CONFIRM"
	ActionPayoutRequest  = "PAYOUT_REQUEST"
	ActionPayoutSettle   = "PAYOUT_SETTLE"
)

type AuditEvent struct {
	ID        string      `json:"id" bson:"_id"`
	Action    string      `json:"action" bson:"action"`
	Result    AuditResult `json:"result" bson:"result"`
	Principal string      `json:"principal" bson:"principal"`
	Reference string      `json:"reference,omitempty" bson:"reference,omitempty"`
	Message   string      `json:"message" bson:"message"`
	At        time.Time   `json:"at" bson:"at"`
}
