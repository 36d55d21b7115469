// internal/pkg/email/types.go
package email

// Type represents the kind of notification being sent
type Type string

const (
	TypeRegistrationReceived Type = "registration_received"
	TypeRegistrationApproved Type = "registration_approved"
	TypeOrderPlaced          Type = "order_placed"
	TypeOrderStatusUpdate    Type = "order_status_update"
)

// Email represents an email message
type Email struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTMLContent string   `json:"html_content"`
	Type        Type     `json:"type"`
}

// OrderPlacedData carries the order summary included in the
// confirmation sent after checkout. One checkout may produce several
// orders (one per supplier).
type OrderPlacedData struct {
	UserName     string
	OrderNumbers []string
	TotalAmount  int64 // cents
}
