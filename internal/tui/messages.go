package tui

// MountedMsg is sent when the initial page load ends.
type MountedMsg struct {
	Err error
}

// PageLoadedMsg is sent when a page change ends. Page change errors are
// kept on the grid view rather than carried here.
type PageLoadedMsg struct {
	First int
}

// BulkDoneMsg is sent when a "select first N" submission ends.
type BulkDoneMsg struct {
	Target int
	Err    error
}
