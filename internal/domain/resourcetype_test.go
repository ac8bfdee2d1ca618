package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want ResourceType
	}{
		{name: "blank", url: "", want: EmptyType},
		{name: "whitespace only", url: "   ", want: EmptyType},
		{name: "trailing slash is a directory", url: "https://example.org/data/", want: DirectoryType},
		{name: "encoded trailing slash is a directory", url: "https://example.org/data%2F", want: DirectoryType},
		{name: "bare host", url: "https://example.org", want: WebPageType},
		{name: "zip file", url: "https://example.org/foobar.01.zip", want: FileType("zip")},
		{name: "csv file", url: "https://example.org/report.csv", want: FileType("csv")},
		{name: "uppercase extension lowered", url: "https://example.org/report.CSV", want: FileType("csv")},
		{name: "7z archive", url: "https://example.org/archive.7z", want: FileType("7z")},
		{name: "numeric suffix is not an extension", url: "https://example.org/foo.01", want: WebPageType},
		{name: "numeric suffix with trailing slash", url: "https://example.org/foobar.01/", want: DirectoryType},
		{name: "html is rejected", url: "https://example.org/page.html", want: WebPageType},
		{name: "htm is rejected", url: "https://example.org/page.htm", want: WebPageType},
		{name: "shtml is rejected", url: "https://example.org/page.shtml", want: WebPageType},
		{name: "aspx is rejected", url: "https://example.org/page.aspx", want: WebPageType},
		{name: "geojson allowed despite length", url: "https://example.org/map.geojson", want: FileType("geojson")},
		{name: "long unknown extension is a page", url: "https://example.org/map.geojsonx", want: WebPageType},
		{name: "no extension is a page", url: "https://example.org/download", want: WebPageType},
		{name: "query string ignored", url: "https://example.org/data.csv?dl=1", want: FileType("csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyURL(tt.url))
		})
	}
}

func TestResourceTypeDBValue(t *testing.T) {
	assert.Equal(t, "", EmptyType.DBValue())
	assert.Equal(t, "dir", DirectoryType.DBValue())
	assert.Equal(t, "web", WebPageType.DBValue())
	assert.Equal(t, "csv", FileType("csv").DBValue())
}

func TestResourceTypeIsDirectDownload(t *testing.T) {
	assert.True(t, FileType("zip").IsDirectDownload())
	assert.False(t, DirectoryType.IsDirectDownload())
	assert.False(t, WebPageType.IsDirectDownload())
	assert.False(t, EmptyType.IsDirectDownload())
}
