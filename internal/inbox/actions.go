package inbox

import "github.com/nhle/mailboard/internal/model"

// Action is a discrete mutation request handled by Reduce.
type Action interface {
	action()
}

// BeginFetch starts a page-one fetch: the generation advances, the cursor
// is reset and any response for an older generation becomes stale.
type BeginFetch struct{}

// Replace installs page one for Generation. Selection is cleared.
type Replace struct {
	Messages   []model.Message
	Cursor     string
	Generation uint64
}

// Append adds a further page for Generation, skipping ids already loaded.
type Append struct {
	Messages   []model.Message
	Cursor     string
	Generation uint64
}

// FetchFailed ends a page-one fetch for Generation without data.
type FetchFailed struct {
	Generation uint64
}

// BeginLoadMore marks a next-page fetch as outstanding.
type BeginLoadMore struct{}

// LoadMoreFailed clears the outstanding next-page marker.
type LoadMoreFailed struct {
	Generation uint64
}

// Reset drops all loaded messages together with their selection,
// classifications and tags, as after an auth failure. Filters are kept.
type Reset struct{}

// MergeClassifications applies automatic results. Existing manual records
// are left untouched.
type MergeClassifications struct {
	Batch []model.Classification
}

// RestoreClassifications loads persisted records. A persisted manual record
// may replace an automatic one; an automatic one never replaces a manual one.
type RestoreClassifications struct {
	Records []model.Classification
}

// SetClassification records a user edit; the result is always manual.
type SetClassification struct {
	Classification model.Classification
}

// ToggleSelect flips membership of ID in the selection.
type ToggleSelect struct {
	ID string
}

// SelectAll selects every loaded message, including ones hidden by local
// filters.
type SelectAll struct{}

// ClearSelection empties the selection.
type ClearSelection struct{}

// SetActive makes ID the active message. An empty ID clears it.
type SetActive struct {
	ID string
}

// MarkReadState flips the local unread flag. It never calls the provider.
type MarkReadState struct {
	IDs    []string
	Unread bool
}

// SetFilters replaces the filter state. When the remote-affecting subset
// changes this also begins a new page-one fetch.
type SetFilters struct {
	Filters model.FilterState
}

// OpenDetail opens the detail surface for the active message.
type OpenDetail struct{}

// CloseDetail closes the detail surface.
type CloseDetail struct{}

// SetTags replaces the tag ids carried by MessageID.
type SetTags struct {
	MessageID string
	TagIDs    []string
}

// SetTagIndex replaces the whole message-to-tags mapping.
type SetTagIndex struct {
	Index map[string][]string
}

// RemoveTag drops TagID from every message and from the tag filter.
type RemoveTag struct {
	TagID string
}

func (BeginFetch) action() {}
func (Replace) action() {}
func (Append) action() {}
func (FetchFailed) action() {}
func (BeginLoadMore) action() {}
func (LoadMoreFailed) action() {}
func (Reset) action() {}
func (MergeClassifications) action() {}
func (RestoreClassifications) action() {}
func (SetClassification) action() {}
func (ToggleSelect) action() {}
func (SelectAll) action() {}
func (ClearSelection) action() {}
func (SetActive) action() {}
func (MarkReadState) action() {}
func (SetFilters) action() {}
func (OpenDetail) action() {}
func (CloseDetail) action() {}
func (SetTags) action() {}
func (SetTagIndex) action() {}
func (RemoveTag) action() {}
