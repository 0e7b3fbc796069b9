// Package history keeps a record of the structural changes modkeep made to
// mod folders, one JSON file per change.
package history

import "time"

// Op is the kind of change recorded.
type Op string

// Recorded operations.
const (
	OpEnable  Op = "enable"
	OpDisable Op = "disable"
	OpRename  Op = "rename"
	OpMove    Op = "move"
	OpDelete  Op = "delete"
	OpKeySwap Op = "keyswap"
)

// Record is one history entry. From and To are folder paths; for key-swap
// saves From is the merged config path and To is empty.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Op        Op        `json:"op"`
	Object    string    `json:"object"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
}
