package models

// Service is owned by the catalog collaborator; the core reads
// pricing and the service-level commission rate at booking creation
// and settlement time.
type Service struct {
	ID             string   `bson:"id" json:"id"`
	Name           string   `bson:"name" json:"name"`
	Category       string   `bson:"category" json:"category"`
	Price          float64  `bson:"price" json:"price"`
	DurationMin    int      `bson:"duration_min" json:"durationMin"`
	CommissionRate *float64 `bson:"commission_rate,omitempty" json:"commissionRate,omitempty"`
}
