package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/vb/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/videos-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("videos-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML renders the store as Netscape bookmark HTML with one folder
// per non-empty category, in category order. Videos keep their list order
// inside a folder.
func ExportHTML(store *model.Store) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Videos</TITLE>\n")
	b.WriteString("<H1>Videos</H1>\n")
	b.WriteString("<DL><p>\n")

	byCategory := make(map[model.Category][]model.Video)
	for _, v := range store.Videos {
		byCategory[v.Category] = append(byCategory[v.Category], v)
	}

	for _, category := range model.Categories() {
		videos := byCategory[category]
		if len(videos) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    <DT><H3>%s</H3>\n", html.EscapeString(string(category)))
		b.WriteString("    <DL><p>\n")
		for _, v := range videos {
			writeVideo(&b, v)
		}
		b.WriteString("    </DL><p>\n")
	}

	b.WriteString("</DL><p>\n")
	return b.String()
}

func writeVideo(b *strings.Builder, v model.Video) {
	fmt.Fprintf(b, "        <DT><A HREF=\"%s\" ADD_DATE=\"%d\"", html.EscapeString(v.URL), v.AddedAt.Unix())
	if len(v.Tags) > 0 {
		fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(v.Tags, ",")))
	}
	fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(v.Title))
}
