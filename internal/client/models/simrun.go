package models

// SimStatus is the lifecycle state of a bankroll simulation run.
type SimStatus string

const (
	SimPending  SimStatus = "pending"
	SimRunning  SimStatus = "running"
	SimComplete SimStatus = "complete"
	SimFailed   SimStatus = "failed"
)

// SimRun records one Monte Carlo bankroll simulation. The simulator itself is
// an external collaborator; the engine only persists and syncs its inputs and
// outputs. Params and Result are opaque JSON objects keyed by ParamsHash for
// deduplication.
type SimRun struct {
	BaseModel

	ParamsHash string         `json:"params_hash"`
	Params     map[string]any `json:"params"`
	Result     map[string]any `json:"result,omitempty"`
	Status     SimStatus      `json:"status"`
	CreatedAt  string         `json:"created_at"`
}
