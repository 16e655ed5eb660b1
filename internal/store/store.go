package store

import (
	"context"

	"github.com/nhle/mailboard/internal/model"
)

// Preferences are UI settings remembered across sessions.
type Preferences struct {
	SidebarVisible   bool
	AssistantVisible bool
	PageSize         int
}

// Store defines the local persistence for everything the mail provider
// does not keep: classifications, tags and UI preferences.
type Store interface {
	// === Classifications ===

	// SaveClassifications upserts automatic results. Rows marked manual
	// are left untouched.
	SaveClassifications(ctx context.Context, records []model.Classification) error
	SetManualClassification(ctx context.Context, c model.Classification) error
	GetClassifications(ctx context.Context, messageIDs []string) ([]model.Classification, error)

	// === Tags ===

	CreateTag(ctx context.Context, tag model.Tag) (model.Tag, error)
	UpdateTag(ctx context.Context, tag model.Tag) error
	DeleteTag(ctx context.Context, id string) error
	GetTags(ctx context.Context) ([]model.Tag, error)
	SetMessageTags(ctx context.Context, messageID string, tagIDs []string) error
	GetTagIndex(ctx context.Context, messageIDs []string) (map[string][]string, error)

	// === Preferences ===

	GetPreferences(ctx context.Context) (Preferences, error)
	SavePreferences(ctx context.Context, p Preferences) error
}
