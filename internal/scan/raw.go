package scan

// Entry is one "key: value" line of a text header.
type Entry struct {
	Key   string
	Value string
}

// Section is a named group of header entries in file order.
// Flat headers use a single section with an empty name.
type Section struct {
	Name    string
	Entries []Entry
}

// RawHeader is the format-specific key/value view of a header, preserving
// section and entry order so writers can reproduce it.
type RawHeader struct {
	Sections []Section
}

// Value returns the value stored under key in the named section.
func (h RawHeader) Value(section, key string) (string, bool) {
	for _, s := range h.Sections {
		if s.Name != section {
			continue
		}
		for _, e := range s.Entries {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return "", false
}

// Section returns the named section, if present.
func (h RawHeader) Section(name string) (Section, bool) {
	for _, s := range h.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Set stores value under key in the named section, creating the section or
// entry at the end when it does not exist yet.
func (h *RawHeader) Set(section, key, value string) {
	for i := range h.Sections {
		if h.Sections[i].Name != section {
			continue
		}
		for j := range h.Sections[i].Entries {
			if h.Sections[i].Entries[j].Key == key {
				h.Sections[i].Entries[j].Value = value
				return
			}
		}
		h.Sections[i].Entries = append(h.Sections[i].Entries, Entry{Key: key, Value: value})
		return
	}
	h.Sections = append(h.Sections, Section{Name: section, Entries: []Entry{{Key: key, Value: value}}})
}

// Flat returns every entry of every section as a single map.
// Later sections win on duplicate keys.
func (h RawHeader) Flat() map[string]string {
	m := make(map[string]string)
	for _, s := range h.Sections {
		for _, e := range s.Entries {
			m[e.Key] = e.Value
		}
	}
	return m
}
