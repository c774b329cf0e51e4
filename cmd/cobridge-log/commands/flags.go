// Package commands implements the cobridge-log CLI commands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/cobridge/cobridge-go/pkg/log"
)

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "engine":
		return log.LayerEngine, nil
	case "script":
		return log.LayerScript, nil
	case "bridge":
		return log.LayerBridge, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be engine, script, or bridge)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "write":
		return log.CategoryWrite, nil
	case "notify":
		return log.CategoryNotify, nil
	case "takeover":
		return log.CategoryTakeover, nil
	case "timer":
		return log.CategoryTimer, nil
	case "connection":
		return log.CategoryConnection, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be write, notify, takeover, timer, connection, or error)", s)
	}
}

// FilterOptions are the string-typed selection flags shared by view and
// filter.
type FilterOptions struct {
	ContextID string
	Control   string
	TimeStart string
	TimeEnd   string
	Layer     string
	Category  string
}

// Build converts the flags to a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{ContextID: o.ContextID}

	if o.Control != "" {
		// "group,item" or just "group".
		group, item, _ := strings.Cut(o.Control, ",")
		filter.Group = strings.TrimSpace(group)
		filter.Item = strings.TrimSpace(item)
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}
