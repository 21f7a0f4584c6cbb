// Package sanitizer normalizes user-supplied strings before they are
// persisted or compared: email addresses for identity lookups and display
// names for profiles and todo titles.
package sanitizer
