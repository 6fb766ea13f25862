package providerRepo

import "servly/models"

// ProviderRepository gives the dispatch core read-only access to the
// provider directory owned by the provider-management collaborator.
type ProviderRepository interface {
	GetByID(id string) (*models.Provider, error)
	ListAvailable(category string) ([]models.Provider, error)
	GetCommissionRate(id string) (*float64, error)
}
