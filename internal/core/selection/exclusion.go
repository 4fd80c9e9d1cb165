package selection

import "strings"

// ExclusionList is an ordered, duplicate-free set of consultant IDs to skip
// for a single selection call.
type ExclusionList []string

// NewExclusionList builds an ExclusionList from ids, dropping blanks and duplicates
// while keeping first-seen order.
func NewExclusionList(ids ...string) ExclusionList {
	return ExclusionList(nil).With(ids...)
}

// With returns a new list with ids appended. The receiver is not modified.
func (l ExclusionList) With(ids ...string) ExclusionList {
	seen := make(map[string]bool, len(l)+len(ids))
	out := make(ExclusionList, 0, len(l)+len(ids))
	for _, id := range append(append([]string{}, l...), ids...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is excluded.
func (l ExclusionList) Contains(id string) bool {
	for _, e := range l {
		if e == id {
			return true
		}
	}
	return false
}

// String renders the list as a comma-separated value.
func (l ExclusionList) String() string {
	return strings.Join(l, ",")
}

// ParseExclusionList parses a comma-separated list as produced by String.
func ParseExclusionList(s string) ExclusionList {
	if s == "" {
		return ExclusionList{}
	}
	return NewExclusionList(strings.Split(s, ",")...)
}
