package models

// PolicyKind names a bankroll-management preset.
type PolicyKind string

const (
	PolicyAggressive PolicyKind = "aggressive"
	PolicyMedium     PolicyKind = "medium"
	PolicyCautious   PolicyKind = "cautious"
	PolicyCustom     PolicyKind = "custom"
)

// Policy is a bankroll-management rule set. Payload is a free-form JSON
// object (stop-loss thresholds, shot-taking rules) owned by the remote
// service; the engine stores and syncs it opaquely.
type Policy struct {
	BaseModel

	Name    string         `json:"name"`
	Kind    PolicyKind     `json:"kind"`
	Payload map[string]any `json:"payload"`
}
