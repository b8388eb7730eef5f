// Package drive knows how the file hosting provider answers download
// requests: which responses carry the file, how its confirmation page hides
// the real download link, and which URLs to try for a file identifier.
//
// Page parsing is split into independent strategies tried in a fixed order so
// that a new page format only needs a new strategy, not a change to the
// resolver.
package drive
