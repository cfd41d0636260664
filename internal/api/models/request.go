package models

// CompileRequest is the body of POST /api/v1/compile. An empty root
// recompiles the configured one; any other root must lie inside it.
type CompileRequest struct {
	Root string `json:"root,omitempty"`
}
