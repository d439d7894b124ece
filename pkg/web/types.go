package web

import "time"

// ActorHeader carries the display name of the user performing an action.
const ActorHeader = "X-Actor-Name"

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Checkers  map[string]string `json:"checkers"`
	Timestamp time.Time         `json:"timestamp"`
}
