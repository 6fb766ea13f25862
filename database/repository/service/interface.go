package serviceRepo

import "servly/models"

// ServiceRepository gives the dispatch core read-only access to the
// service catalog collaborator (pricing, duration, commission rate).
type ServiceRepository interface {
	GetByID(id string) (*models.Service, error)
}
