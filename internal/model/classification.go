package model

import (
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of classification buckets.
type Category string

const (
	CategoryWork         Category = "work"
	CategoryPersonal     Category = "personal"
	CategoryFinance      Category = "finance"
	CategoryShopping     Category = "shopping"
	CategorySocial       Category = "social"
	CategoryNewsletter   Category = "newsletter"
	CategoryPromotion    Category = "promotion"
	CategoryTravel       Category = "travel"
	CategoryNotification Category = "notification"
	CategoryOther        Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryFinance,
	CategoryShopping,
	CategorySocial,
	CategoryNewsletter,
	CategoryPromotion,
	CategoryTravel,
	CategoryNotification,
	CategoryOther,
}

// ParseCategory returns the category named by s, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Priority ranks how urgently a message needs attention.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every valid priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority returns the priority named by s, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Classification is the category/priority/redundancy judgment for a single
// message. A record with Manual set was edited by the user and is never
// replaced by an automatic result.
type Classification struct {
	MessageID   string    `json:"id" db:"message_id"`
	Category    Category  `json:"category" db:"category"`
	Priority    Priority  `json:"priority" db:"priority"`
	Redundant   bool      `json:"redundant" db:"redundant"`
	RedundantOf string    `json:"redundant_of,omitempty" db:"redundant_of"`
	Confidence  float64   `json:"confidence" db:"confidence"`
	Rationale   string    `json:"rationale" db:"rationale"`
	Manual      bool      `json:"manual" db:"manual"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
