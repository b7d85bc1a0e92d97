package service_registry

// Service is the interface for all of the agent's long-running services.
type Service interface {
	Start() error
	Stop() error
}
