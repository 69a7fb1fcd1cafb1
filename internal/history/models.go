package history

import "time"

const SchemaVersion = 1

// Run records one affected-set computation against a workspace.
type Run struct {
	ID                     string        `json:"id"`
	SchemaVersion          int           `json:"schema_version"`
	Timestamp              time.Time     `json:"timestamp"`
	WorkspaceRoot          string        `json:"workspace_root"`
	Base                   string        `json:"base,omitempty"`
	Head                   string        `json:"head,omitempty"`
	CommitHash             string        `json:"commit_hash,omitempty"`
	ChangedFileCount       int           `json:"changed_file_count"`
	ForceAll               bool          `json:"force_all"`
	ChangedCrates          []string      `json:"changed_crates"`
	AffectedLibraryMembers []string      `json:"affected_library_members"`
	AffectedBinaryMembers  []string      `json:"affected_binary_members"`
	Duration               time.Duration `json:"duration"`
}

type TrendPoint struct {
	Timestamp         time.Time `json:"timestamp"`
	ChangedCrates     int       `json:"changed_crates"`
	AffectedMembers   int       `json:"affected_members"`
	BinaryMembers     int       `json:"binary_members"`
	ForceAll          bool      `json:"force_all"`
	DeltaChanged      int       `json:"delta_changed"`
	DeltaAffected     int       `json:"delta_affected"`
	AffectedGrowthPct float64   `json:"affected_growth_pct"`
	AvgAffected       float64   `json:"avg_affected"`
	WindowHours       float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
