package activities

// SyncResult reports the outcome of a reconciliation activity
type SyncResult struct {
	Handled bool
	Message string
}
