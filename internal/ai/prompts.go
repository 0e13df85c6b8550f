package ai

import (
	"fmt"
	"strings"

	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/youtube"
)

const systemInstruction = `You help a user organize their personal list of saved videos. Answer in the language of the user's data when it is not English.`

func categoryList() string {
	categories := model.Categories()
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func buildSummaryPrompt(v model.Video) string {
	var notes string
	if strings.TrimSpace(v.Notes) != "" {
		notes = fmt.Sprintf("\nUser notes: %s", v.Notes)
	}
	var tags string
	if len(v.Tags) > 0 {
		tags = fmt.Sprintf("\nTags: %s", strings.Join(v.Tags, ", "))
	}

	return fmt.Sprintf(`Summarize this video for someone deciding whether to watch it.

Title: %s
URL: %s%s%s

Instructions:
- Look up the video if you can and base the summary on its actual content
- Start with one sentence on what the video is about
- Follow with 3-5 bullet points of key takeaways
- Format the answer as markdown
- Do not invent details you could not verify`, v.Title, v.URL, tags, notes)
}

func buildSuggestPrompt(v model.Video, existingTags []string) string {
	var existing string
	if len(existingTags) > 0 {
		existing = fmt.Sprintf("\nTags already used in the collection: %s", strings.Join(existingTags, ", "))
	}

	return fmt.Sprintf(`Suggest tags and a category for this saved video.

Title: %s
URL: %s
Current tags: %s
Notes: %s%s

Instructions:
- Suggest 3-5 short, lowercase tags
- Prefer tags already used in the collection when they fit
- Choose the category from: %s
- Respond with JSON: {"tags": [...], "category": "..."}`,
		v.Title, v.URL, strings.Join(v.Tags, ", "), v.Notes, existing, categoryList())
}

func buildExtractPrompt(url string, hint *youtube.Snippet) string {
	var known string
	if hint != nil {
		description := hint.Description
		if r := []rune(description); len(r) > 1500 {
			description = string(r[:1500]) + "..."
		}
		known = fmt.Sprintf(`
Known details from the video host:
- Title: %s
- Channel: %s
- Tags: %s
- Description: %s
`, hint.Title, hint.ChannelTitle, strings.Join(hint.Tags, ", "), description)
	}

	return fmt.Sprintf(`Find out what the video at this link is about and describe it for a personal watch list.

URL: %s
%s
Instructions:
- title: the video's real title
- category: one of %s
- tags: 3-5 short, lowercase tags
- notes: one or two sentences on what the viewer will learn or see
- Respond with only a JSON object: {"title": "...", "category": "...", "tags": [...], "notes": "..."}`,
		url, known, categoryList())
}

func buildSearchPrompt(index, query string) string {
	return fmt.Sprintf(`Here is the user's video list as JSON:
%s

Find the videos that best match this request: %q

Instructions:
- Match on meaning, not only on exact words
- Order the ids from most to least relevant
- Leave out videos that do not match
- Respond with JSON: {"ids": [...]}`, index, query)
}
