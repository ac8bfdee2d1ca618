package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// ResourceType classifies a resource URL. The classification is the sole
// signal distinguishing directly rescuable resources from web pages and
// directory listings, and feeds the dataset access counts.
type ResourceType struct {
	kind string
	ext  string
}

const (
	kindEmpty     = "empty"
	kindDirectory = "dir"
	kindWebPage   = "web"
	kindFile      = "file"
)

// Classification results.
var (
	EmptyType     = ResourceType{kind: kindEmpty}
	DirectoryType = ResourceType{kind: kindDirectory}
	WebPageType   = ResourceType{kind: kindWebPage}
)

// FileType returns the classification for a recognized file extension.
func FileType(ext string) ResourceType {
	return ResourceType{kind: kindFile, ext: ext}
}

// IsDirectDownload reports whether the resource points at a single
// downloadable file rather than a page or listing.
func (t ResourceType) IsDirectDownload() bool {
	return t.kind == kindFile
}

// DBValue returns the value stored in the resources.resource_type column:
// the extension for files, "dir"/"web" for listings and pages, and empty
// string for a blank URL (stored as NULL by the ingestion pipeline).
func (t ResourceType) DBValue() string {
	switch t.kind {
	case kindFile:
		return t.ext
	case kindEmpty:
		return ""
	default:
		return t.kind
	}
}

// fileExtRegex matches a path ending in a dot-extension. The first extension
// character must not be a digit (so version-like suffixes such as ".01" are
// not mistaken for file types); "7z" is the one tolerated exception.
var fileExtRegex = regexp.MustCompile(`.+\.([a-zA-Z7][a-zA-Z0-9]+)$`)

const maxExtensionLength = 5

var otherAuthorizedExtensions = map[string]bool{
	"geojson": true,
}

var rejectedExtensions = map[string]bool{
	"aspx":  true,
	"htm":   true,
	"html":  true,
	"htmlx": true,
	"shtml": true,
}

// ClassifyURL derives the ResourceType from the URL shape: blank URL is
// Empty, a trailing slash (or encoded slash) is a Directory, a recognized
// short extension outside the rejected set is a File, anything else is a
// WebPage.
func ClassifyURL(rawURL string) ResourceType {
	if strings.TrimSpace(rawURL) == "" {
		return EmptyType
	}

	parsed, err := url.Parse(rawURL)
	path := rawURL
	if err == nil {
		path = parsed.Path
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return WebPageType
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "%2F") {
		return DirectoryType
	}

	if match := fileExtRegex.FindStringSubmatch(path); match != nil {
		ext := strings.ToLower(match[1])
		if otherAuthorizedExtensions[ext] ||
			(len(ext) <= maxExtensionLength && !rejectedExtensions[ext]) {
			return FileType(ext)
		}
	}

	return WebPageType
}
