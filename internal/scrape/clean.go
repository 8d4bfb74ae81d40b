package scrape

import (
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// maxTextLength caps extracted page text before it is fed to a model.
const maxTextLength = 15000

// ExtractText turns raw HTML into readable text. Readability handles article-
// shaped pages well; when it yields nothing (thin marketing pages, heavy
// templating) a regex cleaner takes over.
func ExtractText(pageURL, html string) string {
	if u, err := url.Parse(pageURL); err == nil {
		article, err := readability.FromReader(strings.NewReader(html), u)
		if err == nil {
			text := strings.TrimSpace(article.TextContent)
			if text != "" {
				return truncate(collapseWhitespace(text))
			}
		}
	}
	return CleanHTML(html)
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTagRe    = regexp.MustCompile(`(?i)<(br|p|div|h[1-6]|li|tr|section|article|header|footer)[^>]*>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
	spacesRe      = regexp.MustCompile(`[ \t]+`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n`)
)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// CleanHTML strips scripts, styles, comments, and tags from HTML, mapping
// block-level elements to newlines and decoding common entities.
func CleanHTML(html string) string {
	text := scriptStyleRe.ReplaceAllString(html, "")
	text = commentRe.ReplaceAllString(text, "")
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = anyTagRe.ReplaceAllString(text, " ")
	text = htmlEntities.Replace(text)
	return truncate(collapseWhitespace(text))
}

func collapseWhitespace(text string) string {
	text = spacesRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func truncate(text string) string {
	if len(text) > maxTextLength {
		return text[:maxTextLength] + "\n...[truncated]"
	}
	return text
}
