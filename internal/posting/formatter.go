package posting

import (
	"regexp"
	"strings"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/sirupsen/logrus"
)

var defaultFormat = models.PlatformFormat{
	MaxLength:    280,
	HashtagLimit: 3,
	Template:     "{title}\n\n{summary}\n\n{hashtags}\n\n{url}",
}

var topicTags = map[string]string{
	"technology":    "#Tech",
	"business":      "#Business",
	"politics":      "#Politics",
	"sports":        "#Sports",
	"entertainment": "#Entertainment",
	"health":        "#Health",
}

var hashtagKeywords = map[string]bool{
	"news":     true,
	"breaking": true,
	"update":   true,
	"latest":   true,
}

var nonWordChars = regexp.MustCompile(`\W`)

// Formatter renders articles into platform-sized posts.
type Formatter struct {
	formats map[string]models.PlatformFormat
}

// NewFormatter creates a formatter with the given per-platform formats.
func NewFormatter(formats map[string]models.PlatformFormat) *Formatter {
	return &Formatter{formats: formats}
}

// Format renders one article for one platform: summary from the body,
// hashtags from the analysis, all fitted into the platform's length cap.
// A degenerate article that renders to nothing, or a rendering failure,
// falls back to a plain link post.
func (f *Formatter) Format(article *models.Article, platform string) (content string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Formatting article %s for %s failed: %v", article.ID, platform, r)
			content = "Check out this interesting article: " + article.URL
		}
	}()

	format, ok := f.formats[platform]
	if !ok {
		logrus.Warnf("No format configured for platform %s, using defaults", platform)
		format = defaultFormat
	}

	replacer := strings.NewReplacer(
		"{title}", article.Title,
		"{summary}", summarize(article.Content, platform),
		"{hashtags}", strings.Join(hashtags(article, format.HashtagLimit), " "),
		"{url}", article.URL,
	)
	content = replacer.Replace(format.Template)

	if strings.TrimSpace(content) == "" {
		return "Check out this interesting article: " + article.URL
	}
	if len(content) > format.MaxLength {
		content = truncate(content, format.MaxLength)
	}
	return content
}

// summarize builds a short summary from the article body by accumulating
// leading sentences into the platform's summary budget. When not even the
// first sentence fits, it falls back to a hard prefix cut.
func summarize(content, platform string) string {
	budget := 150
	switch platform {
	case "twitter":
		budget = 100
	case "facebook":
		budget = 200
	}

	summary := ""
	for _, sentence := range strings.Split(content, ". ") {
		if len(summary+sentence+". ") > budget {
			break
		}
		summary += sentence + ". "
	}
	if summary == "" {
		if len(content) > budget {
			content = content[:budget]
		}
		summary = content + "..."
	}
	return strings.TrimSpace(summary)
}

// hashtags derives up to limit tags from topics, the first two entities and
// trigger keywords. #News is appended as a filler before the limit applies,
// so a full tag list can push it out.
func hashtags(article *models.Article, limit int) []string {
	var tags []string
	if a := article.Analysis; a != nil {
		for _, topic := range a.Topics {
			if tag, ok := topicTags[topic]; ok {
				tags = append(tags, tag)
			}
		}

		entities := a.Entities
		if len(entities) > 2 {
			entities = entities[:2]
		}
		for _, entity := range entities {
			clean := nonWordChars.ReplaceAllString(entity, "")
			if len(clean) > 3 && len(clean) < 20 {
				tags = append(tags, "#"+clean)
			}
		}

		for _, keyword := range a.Keywords {
			if hashtagKeywords[strings.ToLower(keyword)] {
				tags = append(tags, "#"+capitalize(keyword))
			}
		}
	}

	hasNews := false
	for _, tag := range tags {
		if tag == "#News" {
			hasNews = true
		}
	}
	if !hasNews {
		tags = append(tags, "#News")
	}

	seen := make(map[string]bool, len(tags))
	deduped := make([]string, 0, len(tags))
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			deduped = append(deduped, tag)
		}
	}
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

// truncate cuts content down to max bytes, ending at the last sentence or
// line break when one falls late enough, and marks the cut with an
// ellipsis.
func truncate(content string, max int) string {
	if len(content) <= max {
		return content
	}
	if max <= 3 {
		return content[:max]
	}

	truncated := content[:max-3]
	cut := strings.LastIndex(truncated, ".")
	if n := strings.LastIndex(truncated, "\n"); n > cut {
		cut = n
	}
	if float64(cut) > float64(max)*0.7 {
		return truncated[:cut+1] + "..."
	}
	return truncated + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
