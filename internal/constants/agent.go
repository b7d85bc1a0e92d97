package constants

// Backend response statuses
const (
	// ResponseStatusOK indicates the backend accepted the request
	ResponseStatusOK = "ok"
	// ResponseStatusError indicates the backend rejected the request
	ResponseStatusError = "error"
)

// Agent statuses carried in status reports
const (
	// AgentStatusActive indicates a position watch is running
	AgentStatusActive = "active"
	// AgentStatusIdle indicates the agent is up but not tracking
	AgentStatusIdle = "idle"
)
