package models

// VisitStats is the answer to a "recent visits" query, tagged with the
// backend that served it ("postgresql", "mongodb" or "none").
type VisitStats struct {
	VisitCount int64         `json:"visit_count"`
	LastVisits []VisitRecord `json:"last_visits"`
	Source     string        `json:"source"`
}

// BackendInfo is the introspection payload for a single backend,
// populated only while the backend is connected.
type BackendInfo struct {
	Database    string   `json:"database,omitempty"`
	Collections []string `json:"collections,omitempty"`
	Tables      []string `json:"tables,omitempty"`
	VisitCount  int64    `json:"visit_count"`
}
