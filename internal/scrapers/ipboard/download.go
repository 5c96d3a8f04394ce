package ipboard

import (
	"context"
	"fmt"
	"forumdl/internal/catalog"
	"io"
	"mime"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonWordRegex    = regexp.MustCompile(`[^\w.\-]+`)
)

// DispositionFilename extracts the filename from a Content-Disposition header. Headers that do
// not parse are salvaged by taking whatever follows "filename".
func DispositionFilename(header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	_, params, err := mime.ParseMediaType(header)
	if err == nil {
		name := params["filename"]
		return name, name != ""
	}

	idx := strings.Index(strings.ToLower(header), "filename")
	if idx < 0 {
		return "", false
	}
	name := strings.TrimSpace(header[idx+len("filename"):])
	name = whitespaceRegex.ReplaceAllString(name, "_")
	name = nonWordRegex.ReplaceAllString(name, "")
	name = strings.Trim(name, "_")
	return name, name != ""
}

// Download requests a download action with the session cookies. Responses naming a file are
// handed back unread so they can be streamed, everything else is buffered.
func (c *Client) Download(ctx context.Context, link string) (catalog.DownloadResponse, error) {
	c.tel.ReportDebug(report_client_download, link)

	res, err := c.authenticated.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(link)
	if err != nil {
		c.tel.ReportBroken(report_client_download, fmt.Errorf("request: %w", err), link)
		return nil, err
	}
	body := res.RawBody()
	// unparsed responses skip the after response hooks, so the request span ends here
	trace.SpanFromContext(res.Request.Context()).End()

	if res.IsError() {
		body.Close()
		err := &catalog.StatusError{Url: link, Code: res.StatusCode()}
		c.tel.ReportBroken(report_client_download, err)
		return nil, err
	}

	filename, ok := DispositionFilename(res.Header().Get("content-disposition"))
	if ok {
		c.tel.ReportDebug(report_client_download, "binary", filename)
		return catalog.BinaryResponse{
			Body:     body,
			Filename: filename,
			Size:     res.RawResponse.ContentLength,
		}, nil
	}

	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		c.tel.ReportBroken(report_client_download, fmt.Errorf("read body: %w", err), link)
		return nil, err
	}
	return catalog.TextResponse{
		Url:  finalUrl(res).String(),
		Body: contents,
	}, nil
}
