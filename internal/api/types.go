package api

import "encoding/json"

// Source is a registered data source and its latest dump/upload state.
// The Hub owns the full schema; only the fields the console renders are
// typed here.
type Source struct {
	Name    string          `json:"name"`
	Release string          `json:"release,omitempty"`
	Count   int64           `json:"count,omitempty"`
	Dump    json.RawMessage `json:"download,omitempty"`
	Upload  json.RawMessage `json:"upload,omitempty"`
}

// Build is one merge build and its status.
type Build struct {
	ID          string          `json:"_id"`
	Config      string          `json:"build_config,omitempty"`
	Target      string          `json:"target_name,omitempty"`
	Status      string          `json:"status,omitempty"`
	Sources     []string        `json:"sources,omitempty"`
	BuildMeta   json.RawMessage `json:"_meta,omitempty"`
	StartedAt   string          `json:"started_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
}

// BuildConfig describes how builds for a target are assembled.
type BuildConfig struct {
	Name    string   `json:"name"`
	DocType string   `json:"doc_type,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// Command is one Hub-side job, running or finished.
type Command struct {
	ID         string `json:"id"`
	Cmd        string `json:"cmd,omitempty"`
	State      string `json:"state,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// HubStatus is the backend's top-level status summary.
type HubStatus struct {
	Version   string          `json:"version,omitempty"`
	Biothings json.RawMessage `json:"biothings,omitempty"`
	Jobs      json.RawMessage `json:"job_manager,omitempty"`
	Sources   json.RawMessage `json:"source,omitempty"`
	Builds    json.RawMessage `json:"build,omitempty"`
}
