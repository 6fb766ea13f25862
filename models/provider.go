package models

// Provider is owned by the provider-management collaborator. The
// dispatch core only reads availability, categories and the
// commission rate; it never writes provider documents.
type Provider struct {
	ID                string   `bson:"id" json:"id"`
	Name              string   `bson:"name" json:"name,omitempty"`
	IsAvailable       bool     `bson:"is_available" json:"isAvailable"`
	ServiceCategories []string `bson:"service_categories" json:"serviceCategories"`

	// CommissionRate is a percentage (e.g. 12.5). Zero means "not
	// set"; settlement then falls through to the service rate.
	CommissionRate *float64 `bson:"commission_rate,omitempty" json:"commissionRate,omitempty"`
}

// ServesCategory reports whether the provider covers the given
// service category.
func (p *Provider) ServesCategory(category string) bool {
	for _, c := range p.ServiceCategories {
		if c == category {
			return true
		}
	}
	return false
}
