package models

// Actor roles as resolved by the identity collaborator.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Actor identifies the authenticated caller of a lifecycle command.
// It is resolved from the session token by middleware and trusted on
// every command; the core never reads actor identity from a request
// body.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}
