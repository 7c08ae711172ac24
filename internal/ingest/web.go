// ABOUTME: WebLoader fetches a URL and extracts readable text from HTML, plain text or PDF
// ABOUTME: HTML is tokenized with x/net/html and script/style content is dropped
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxDocumentBytes = 32 << 20

// WebLoader loads documents over HTTP
type WebLoader struct {
	client    *http.Client
	userAgent string
}

// NewWebLoader creates a WebLoader; a nil client uses timeout
func NewWebLoader(client *http.Client, timeout time.Duration) *WebLoader {
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WebLoader{client: client, userAgent: "finassist/1.0"}
}

// Load fetches rawURL and returns its text, one entry per page for PDFs
func (l *WebLoader) Load(ctx context.Context, rawURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/pdf" || bytes.HasPrefix(body, []byte("%PDF-")):
		return readPDF(bytes.NewReader(body), int64(len(body)))
	case mediaType == "text/plain":
		return nonEmpty([]string{string(body)}), nil
	default:
		text, err := ExtractHTMLText(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return nonEmpty([]string{text}), nil
	}
}

var skipTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Title: true, atom.Table: true,
}

// ExtractHTMLText returns the visible text of an HTML document with one
// line per block element
func ExtractHTMLText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var (
		lines []string
		line  strings.Builder
		skip  int
	)
	flush := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				flush()
				return strings.Join(lines, "\n"), nil
			}
			return "", fmt.Errorf("parse html: %w", z.Err())
		case html.StartTagToken:
			tok := z.Token()
			if skipTags[tok.DataAtom] {
				skip++
			} else if blockTags[tok.DataAtom] {
				flush()
			}
		case html.EndTagToken:
			tok := z.Token()
			if skipTags[tok.DataAtom] && skip > 0 {
				skip--
			} else if blockTags[tok.DataAtom] {
				flush()
			}
		case html.SelfClosingTagToken:
			if blockTags[z.Token().DataAtom] {
				flush()
			}
		case html.TextToken:
			if skip == 0 {
				line.Write(z.Text())
				line.WriteByte(' ')
			}
		}
	}
}

func nonEmpty(texts []string) []string {
	out := texts[:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
