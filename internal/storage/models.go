package storage

import "time"

// SyncState is the singleton record describing which commit the index is
// converging to.
type SyncState struct {
	Commit     string // Empty until the first commit is started
	CommitDone bool
}

// Settings is the project configuration consumed by the indexer.
type Settings struct {
	Org        string   `json:"org"`
	Repo       string   `json:"repo"`
	Branch     string   `json:"branch"`
	Extensions []string `json:"extensions"`
	Exclusions []string `json:"exclusions,omitempty"`
	ByteLimit  *int     `json:"byteLimit,omitempty"`
	ChatModel  string   `json:"chatModel,omitempty"`
}

// FileRecord is one indexed path of the tree.
type FileRecord struct {
	ID         int64  // Store-assigned surrogate key
	Path       string // Unique natural key
	Language   string
	FileSHA    string // Git blob sha of the indexed content
	TreeCommit string // Last commit the file was confirmed live in
}

// GoalEmbedding is one summarized responsibility of a file and its vector.
type GoalEmbedding struct {
	ID     string // UUID (same as the vector index point ID)
	FileID int64
	Goal   string
	Vector []float32
}

// LogOperator names the kind of sync event recorded in the log.
type LogOperator string

const (
	OpStart   LogOperator = "start"
	OpAdd     LogOperator = "add"
	OpCleanup LogOperator = "cleanup"
	OpFinish  LogOperator = "finish"
)

// LogEntry is one append-only sync event.
type LogEntry struct {
	Cursor    int64       `json:"cursor"`
	Operator  LogOperator `json:"operator"`
	SHA       string      `json:"sha"`
	Path      string      `json:"path,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// GoalAndFile is a goal joined to the file that owns it.
type GoalAndFile struct {
	GoalID string
	Goal   string
	File   FileRecord
}
