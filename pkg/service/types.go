package service

// Dependencies holds all external service dependencies that actions can use.
// Components receive this struct and can access only the services they need.
type Dependencies struct {
	Deliverer Deliverer
}

// NewDependencies creates a new dependencies container.
// Services can be nil if not needed - components should handle nil gracefully.
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// WithDeliverer sets the delivery collaborator.
func (d *Dependencies) WithDeliverer(deliverer Deliverer) *Dependencies {
	d.Deliverer = deliverer
	return d
}
