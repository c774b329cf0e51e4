package control

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned by ParseKey for malformed key strings.
var ErrInvalidKey = errors.New("invalid control key")

// Key identifies a control cell by group and item.
// Keys with equal strings always resolve to the same cell.
type Key struct {
	Group string
	Item  string
}

// K is shorthand for Key{Group: group, Item: item}.
func K(group, item string) Key {
	return Key{Group: group, Item: item}
}

// String renders the key as "group,item", e.g. "[Channel1],volume".
func (k Key) String() string {
	return k.Group + "," + k.Item
}

// IsZero reports whether both group and item are empty.
func (k Key) IsZero() bool {
	return k.Group == "" && k.Item == ""
}

// ParseKey parses "group,item". Surrounding whitespace is trimmed.
func ParseKey(s string) (Key, error) {
	group, item, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q: missing comma", ErrInvalidKey, s)
	}
	group = strings.TrimSpace(group)
	item = strings.TrimSpace(item)
	if group == "" || item == "" {
		return Key{}, fmt.Errorf("%w: %q: empty group or item", ErrInvalidKey, s)
	}
	return Key{Group: group, Item: item}, nil
}

// DeckGroup returns the group name of deck n, e.g. "[Channel1]".
func DeckGroup(n int) string {
	return fmt.Sprintf("[Channel%d]", n)
}
