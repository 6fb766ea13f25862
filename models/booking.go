package models

import "time"

// Booking is the central entity of the dispatch core. It is created
// once, mutated only through validated status transitions, and never
// deleted; terminal bookings are retained for history and earnings.
type Booking struct {
	ID         string `bson:"id" json:"id"`                  // Unique booking identifier (UUID)
	CustomerID string `bson:"customer_id" json:"customerId"` // Customer who requested the service
	ServiceID  string `bson:"service_id" json:"serviceId"`   // Service being booked

	// ProviderID is empty until a provider is assigned. It is set
	// exactly once per assignment episode and cleared again when a
	// rejected targeted booking is reopened to the pool.
	ProviderID string `bson:"provider_id,omitempty" json:"providerId,omitempty"`

	Status    string  `bson:"status" json:"status"`                           // pending | accepted | in_progress | completed | cancelled | rejected
	Targeted  bool    `bson:"targeted" json:"targeted"`                       // true when pre-assigned to one provider
	Category  string  `bson:"category" json:"category"`                       // Service category, used for pool visibility
	Address   string  `bson:"address" json:"address"`                         // Customer-supplied service address
	Notes     string  `bson:"notes,omitempty" json:"notes,omitempty"`         // Customer-supplied notes
	Surcharge float64 `bson:"surcharge,omitempty" json:"surcharge,omitempty"` // Optional urgency surcharge added at creation

	ScheduledTime time.Time `bson:"scheduled_time" json:"scheduledTime"`

	// TotalAmount is fixed at creation from the service price plus
	// surcharge. Commission fields stay nil until settlement runs at
	// completion and are immutable afterwards.
	TotalAmount      float64  `bson:"total_amount" json:"totalAmount"`
	CommissionRate   *float64 `bson:"commission_rate,omitempty" json:"commissionRate,omitempty"`
	CommissionAmount *float64 `bson:"commission_amount,omitempty" json:"commissionAmount,omitempty"`
	NetAmount        *float64 `bson:"net_amount,omitempty" json:"netAmount,omitempty"`

	// RateOverride, when set at creation, takes precedence over
	// provider and service commission rates at settlement.
	RateOverride *float64 `bson:"rate_override,omitempty" json:"rateOverride,omitempty"`

	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	// Version is the optimistic concurrency token. Every successful
	// transition bumps it by one; claims and transitions are
	// conditional on the expected value.
	Version int64 `bson:"version" json:"version"`

	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// Assigned reports whether the booking currently has a provider.
func (b *Booking) Assigned() bool {
	return b.ProviderID != ""
}

// Settled reports whether settlement has already been applied.
func (b *Booking) Settled() bool {
	return b.CommissionAmount != nil
}
