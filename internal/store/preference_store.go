package store

import (
	"context"
	"fmt"
	"strconv"
)

const (
	prefSidebar   = "sidebar_visible"
	prefAssistant = "assistant_visible"
	prefPageSize  = "page_size"
)

// DefaultPreferences is what a fresh database returns.
func DefaultPreferences() Preferences {
	return Preferences{SidebarVisible: true}
}

// GetPreferences reads stored preferences over the defaults.
func (s *SQLiteStore) GetPreferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences()

	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT key, value FROM preferences"); err != nil {
		return p, fmt.Errorf("querying preferences: %w", err)
	}

	for _, r := range rows {
		switch r.Key {
		case prefSidebar:
			p.SidebarVisible = r.Value == "1"
		case prefAssistant:
			p.AssistantVisible = r.Value == "1"
		case prefPageSize:
			if n, err := strconv.Atoi(r.Value); err == nil && n > 0 {
				p.PageSize = n
			}
		}
	}
	return p, nil
}

// SavePreferences writes every preference.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p Preferences) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	values := map[string]string{
		prefSidebar:   boolString(p.SidebarVisible),
		prefAssistant: boolString(p.AssistantVisible),
		prefPageSize:  strconv.Itoa(p.PageSize),
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v); err != nil {
			return fmt.Errorf("saving preference %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
