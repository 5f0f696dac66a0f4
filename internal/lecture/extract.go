package lecture

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

var (
	contentSelectors = []string{"main", "article", ".content", "#content", ".lecture", "#lecture"}
	dropSelectors    = "script, style, noscript, nav, header, footer, aside, form"
	noisePatterns    = []string{"Cookie Policy", "Accept Cookies", "Privacy Policy", "Terms of Service"}
)

// Extract returns the page title and the readable text of its main content
// area, falling back to the body.
func Extract(html string) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(dropSelectors).Remove()

	for _, selector := range contentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if strings.TrimSpace(content) == "" {
		content = doc.Find("body").Text()
	}

	return title, cleanContent(content), nil
}

func cleanContent(content string) string {
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}
	return strings.Join(strings.Fields(content), " ")
}

// Importer turns a lecture page into a LectureDocument.
type Importer struct {
	renderer Renderer
	log      logrus.FieldLogger
}

func NewImporter(renderer Renderer, log logrus.FieldLogger) *Importer {
	return &Importer{renderer: renderer, log: log}
}

// Fetch renders pageURL and extracts its text. title overrides the page
// title when set.
func (i *Importer) Fetch(ctx context.Context, pageURL, title string) (types.LectureDocument, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.LectureDocument{}, apperr.Newf(apperr.KindInvalidInput, "lecture import", "invalid url %q", pageURL)
	}

	html, err := i.renderer.Render(ctx, pageURL)
	if err != nil {
		return types.LectureDocument{}, apperr.New(apperr.KindUpstream, "lecture import", err)
	}

	pageTitle, content, err := Extract(html)
	if err != nil {
		return types.LectureDocument{}, apperr.New(apperr.KindUpstream, "lecture import", err)
	}
	if content == "" {
		return types.LectureDocument{}, apperr.Newf(apperr.KindInvalidInput, "lecture import", "no text found at %s", pageURL)
	}

	if title == "" {
		title = pageTitle
	}
	if title == "" {
		title = u.Host + u.Path
	}

	i.log.WithFields(logrus.Fields{"url": pageURL, "title": title, "chars": len(content)}).Info("Imported lecture page")
	return types.LectureDocument{Title: title, Content: content}, nil
}
