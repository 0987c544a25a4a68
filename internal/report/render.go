package report

import (
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed style.css
var defaultStyle string

// PDFRenderer turns a complete HTML document into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, htmlDoc string) ([]byte, error)
}

// Builder renders documents. WebDir may hold a style.css overriding the
// built-in stylesheet.
type Builder struct {
	webDir   string
	renderer PDFRenderer

	styleOnce sync.Once
	styleCSS  string
	styleErr  error
}

func NewBuilder(webDir string, renderer PDFRenderer) *Builder {
	return &Builder{webDir: strings.TrimSpace(webDir), renderer: renderer}
}

func (b *Builder) HTML(d Document) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(d)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	css, err := b.loadStyleCSS()
	if err != nil {
		return "", err
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(d.Title()) + "</title>" +
		"<style>" + css + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
		"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} }" +
		"</style></head><body>" +
		"<div class='report-meta'>" + metaHTML(d) + "</div>" +
		"<div class='report-badges'>" + badgeHTML(d) + "</div>" +
		"<div class='report-html'>" + applyPrintLayoutHooks(content.String()) + "</div>" +
		"</body></html>", nil
}

func (b *Builder) PDF(ctx context.Context, d Document) ([]byte, error) {
	if b.renderer == nil {
		return nil, fmt.Errorf("pdf rendering is not configured")
	}
	doc, err := b.HTML(d)
	if err != nil {
		return nil, err
	}
	return b.renderer.Render(ctx, doc)
}

var reMatchesHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*` + matchesHeading + `\s*</h2>`)

// applyPrintLayoutHooks starts the venture match section on a new page.
func applyPrintLayoutHooks(contentHTML string) string {
	return reMatchesHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">`+matchesHeading+`</h2>`)
}

func (b *Builder) loadStyleCSS() (string, error) {
	b.styleOnce.Do(func() {
		if b.webDir == "" {
			b.styleCSS = defaultStyle
			return
		}
		blob, err := os.ReadFile(filepath.Join(b.webDir, "style.css"))
		if err != nil {
			b.styleErr = fmt.Errorf("read style.css: %w", err)
			return
		}
		b.styleCSS = string(blob)
	})
	return b.styleCSS, b.styleErr
}

func metaHTML(d Document) string {
	var out strings.Builder
	if d.Result.ID != "" {
		out.WriteString("<div><strong>Result:</strong> " + html.EscapeString(d.Result.ID) + "</div>")
	}
	if !d.Result.CreatedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(d.Result.CreatedAt.UTC().Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func badgeHTML(d Document) string {
	var out strings.Builder
	if t := string(d.Result.PrimaryOperatorType); t != "" {
		out.WriteString("<span class='report-badge'>" + html.EscapeString(t) + "</span>")
	}
	if c := string(d.Result.ConfidenceLevel); c != "" {
		out.WriteString("<span class='report-badge'>Confidence: " + html.EscapeString(c) + "</span>")
	}
	if d.Result.TrapAnalysis.ShouldFlag {
		out.WriteString("<span class='report-badge flag'>Reliability flag</span>")
	}
	return out.String()
}

// ChromiumPDFRenderer prints HTML through a headless Chromium.
type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
}

func NewChromiumPDFRenderer() *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{chromePath: detectChromePath(), timeout: 30 * time.Second}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, htmlDoc string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func detectChromePath() string {
	for _, p := range []string{"/usr/bin/chromium-browser", "/usr/bin/chromium", "/usr/bin/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
