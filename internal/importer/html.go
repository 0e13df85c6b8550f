package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/vb/internal/model"
	"golang.org/x/net/html"
)

// ParseHTML reads Netscape bookmark HTML and returns one video per link.
//
// Enclosing folder names become tags, except a folder named after a
// category, which sets the category instead. A TAGS attribute is split on
// commas and ADD_DATE sets the added time. Links that would not pass the
// edit form, such as place: or javascript: entries, are skipped.
func ParseHTML(r io.Reader) ([]model.Video, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var videos []model.Video
	var folders []string // names of the open folders, outermost first
	var pending string   // folder name seen in an H3 but whose DL is not open yet

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h3":
				pending = textContent(n)
				return

			case "a":
				if v, ok := videoFromAnchor(n, folders); ok {
					videos = append(videos, v)
				}
				return

			case "dl":
				opened := pending != ""
				if opened {
					folders = append(folders, pending)
					pending = ""
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				if opened {
					folders = folders[:len(folders)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return videos, nil
}

func videoFromAnchor(n *html.Node, folders []string) (model.Video, bool) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return model.Video{}, false
	}

	title := textContent(n)
	if title == "" {
		title = href
	}

	category := model.CategoryOther
	var tags []string
	for _, name := range folders {
		if c, err := model.ParseCategory(name); err == nil {
			category = c
			continue
		}
		tags = append(tags, name)
	}
	if raw := attr(n, "tags"); raw != "" {
		tags = append(tags, strings.Split(raw, ",")...)
	}

	form := model.VideoForm{
		Title:    title,
		URL:      href,
		Tags:     tags,
		Category: category,
		Status:   model.StatusUnwatched,
	}
	// place:, javascript: and other non-web links cannot be edited later
	if err := form.Validate(); err != nil {
		return model.Video{}, false
	}

	v := model.NewVideo(model.NewVideoParams{
		Title:    form.Title,
		URL:      form.URL,
		Tags:     form.Tags,
		Category: form.Category,
	})

	if addDate := attr(n, "add_date"); addDate != "" {
		if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
			v.AddedAt = time.Unix(ts, 0)
		}
	}

	return v, true
}

// textContent returns the trimmed text below n.
func textContent(n *html.Node) string {
	var text strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(text.String())
}

// attr returns the value of the named attribute. The parser lowercases
// attribute keys.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
