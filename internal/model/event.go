package model

import "encoding/json"

// Action identifies what an actor did to a resource.
type Action string

const (
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionCreate Action = "CREATE"
	ActionExport Action = "EXPORT"
)

// Actions lists every well-known action.
var Actions = []Action{ActionLogin, ActionLogout, ActionUpdate, ActionDelete, ActionCreate, ActionExport}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks whether the action is a known value. Query filters do not
// require validity; an unknown action simply matches no events.
func (a Action) IsValid() bool {
	switch a {
	case ActionLogin, ActionLogout, ActionUpdate, ActionDelete, ActionCreate, ActionExport:
		return true
	}
	return false
}

// ResourceType categorizes the resource an event touched.
type ResourceType string

const (
	ResourceOrder     ResourceType = "ORDER"
	ResourceUser      ResourceType = "USER"
	ResourceProduct   ResourceType = "PRODUCT"
	ResourceInvoice   ResourceType = "INVOICE"
	ResourceWarehouse ResourceType = "WAREHOUSE"
)

// ResourceTypes lists every well-known resource type.
var ResourceTypes = []ResourceType{ResourceOrder, ResourceUser, ResourceProduct, ResourceInvoice, ResourceWarehouse}

// String returns the string representation of the resource type.
func (r ResourceType) String() string {
	return string(r)
}

// IsValid checks whether the resource type is a known value.
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceOrder, ResourceUser, ResourceProduct, ResourceInvoice, ResourceWarehouse:
		return true
	}
	return false
}

// PayloadLocator addresses a payload's raw bytes within the payload log:
// Length bytes starting at Offset, trailing newline included.
type PayloadLocator struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// AuditEvent is one immutable audit log record. CreatedAt is epoch seconds
// and need not be unique; ID is unique and assigned monotonically at
// creation. The canonical order of events is created_at descending, id
// descending as the tie-break.
//
// Payload is populated per request by the payload fetcher; the locator is
// process-internal and never serialized.
type AuditEvent struct {
	ID           int64           `json:"id"`
	CreatedAt    int64           `json:"created_at"`
	ActorID      int64           `json:"actor_id"`
	Action       Action          `json:"action"`
	ResourceType ResourceType    `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Locator      PayloadLocator  `json:"-"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Cursor is the canonical sort key of one row. Keyset pagination resumes
// strictly after it: the next page holds rows with
// (created_at, id) < (CreatedAt, ID) in descending order.
type Cursor struct {
	CreatedAt int64 `json:"created_at"`
	ID        int64 `json:"id"`
}
