package types

// Event is the flattened form of a ledger event, suitable for journaling and
// JSON output. Height is stamped by the block pipeline that emitted it.
type Event struct {
	Type       string            `json:"type"`
	Height     uint64            `json:"height,omitempty"`
	Attributes map[string]string `json:"attributes"`
}
