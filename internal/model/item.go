package model

// WorkItem is one line of an inventory. It is never mutated after parsing.
type WorkItem struct {
	ScopeID    string // subscription id, third segment of ResourceID
	ItemID     string // vm name or snapshot name
	ResourceID string
	RawLine    string
	Line       int
}

// SnapshotInfo are the attributes reported by a snapshot validation.
type SnapshotInfo struct {
	ID                string
	Name              string
	ResourceGroup     string
	TimeCreated       string
	DiskSizeGB        string
	ProvisioningState string
}
