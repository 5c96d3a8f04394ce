package catalog

import (
	"bytes"
	"context"
	"fmt"
	"forumdl/internal/components/chrono"
	"forumdl/internal/components/telemetry"
	"forumdl/pkg/htmlutil"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_resolver_overview = "resolver.overview"
	report_resolver_dispatch = "resolver.dispatch"
	report_resolver_resolve  = "resolver.resolve"
)

// Dumper keeps the body of responses nobody knows how to interpret.
type Dumper interface {
	Dump(ext string, contents []byte) (string, error)
}

type ResolveOptions struct {
	// Filename picks a file when a record offers several, the first one is used when empty.
	Filename   string
	DestFolder string
}

// Resolution is the outcome of a successful download.
type Resolution struct {
	Record Record
	Saved
}

// Resolver turns a cached record into a file on disk: it visits the overview page (logging in
// once if the page asks for it), follows the download link, passes through at most one
// confirmation page and streams the binary it lands on.
type Resolver struct {
	session  Session
	adapter  Adapter
	cache    *RecordCache
	streamer FileStreamer
	sleep    chrono.SleepAPI
	dumper   Dumper
	tel      telemetry.API
}

func NewResolver(
	session Session,
	adapter Adapter,
	cache *RecordCache,
	streamer FileStreamer,
	sleep chrono.SleepAPI,
	dumper Dumper,
	tel telemetry.API,
) Resolver {
	return Resolver{
		session:  session,
		adapter:  adapter,
		cache:    cache,
		streamer: streamer,
		sleep:    sleep,
		dumper:   dumper,
		tel:      tel,
	}
}

var (
	quotaRegex       = regexp.MustCompile(`(?i)(download quota|daily (download )?limit|quota (has been |was )?(exceeded|reached))`)
	concurrencyRegex = regexp.MustCompile(`(?i)(concurrent|simultaneous) downloads?|downloads? at (a|one|the same) time`)
	waitRegex        = regexp.MustCompile(`(?i)wait\s+(\d+)\s+seconds?`)
)

type textOutcome int

const (
	outcome_page textOutcome = iota
	outcome_quota
	outcome_concurrency
	outcome_wait
)

// classifyText checks a textual response against the messages the server is known to send
// instead of a file, in order of precedence.
func classifyText(text string) (textOutcome, int) {
	if quotaRegex.MatchString(text) {
		return outcome_quota, 0
	}
	if concurrencyRegex.MatchString(text) {
		return outcome_concurrency, 0
	}
	if groups := waitRegex.FindStringSubmatch(text); len(groups) == 2 {
		seconds, err := strconv.Atoi(groups[1])
		if err == nil {
			return outcome_wait, seconds
		}
	}
	return outcome_page, 0
}

func parseText(res TextResponse) (*goquery.Document, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, "", err
	}
	if parsed, err := url.Parse(res.Url); err == nil {
		doc.Url = parsed
	}
	text := htmlutil.SelectionText(doc.Find("body"))
	if text == "" {
		text = htmlutil.CleanText(string(res.Body))
	}
	return doc, text, nil
}

// Resolve downloads a record into opts.DestFolder. The record must come out of the cache, the
// cache is saved after the download link is found, after a file listing is read and once the
// file is on disk, never while streaming.
func (r Resolver) Resolve(ctx context.Context, record Record, opts ResolveOptions) (Resolution, error) {
	if record.Url == "" {
		return Resolution{}, invalidArgument("record %d has no url", record.Id)
	}

	doc, err := r.overview(ctx, record.Url)
	if err != nil {
		return Resolution{}, err
	}

	details := r.adapter.RecordDetails(doc)
	if details.Description != "" {
		record.Description = details.Description
	}
	if len(details.Info) > 0 {
		record.Info = details.Info
	}

	link, ok := r.adapter.DownloadLink(doc)
	if !ok {
		record.Broken = true
		err := r.checkpoint(ctx, record)
		if err != nil {
			return Resolution{}, err
		}
		extractErr := &ExtractionError{What: "download link", Url: record.Url}
		r.tel.ReportBroken(report_resolver_resolve, extractErr)
		return Resolution{}, extractErr
	}
	err = r.checkpoint(ctx, record)
	if err != nil {
		return Resolution{}, err
	}

	target := link
	confirmed := false
	for {
		res, err := r.dispatch(ctx, target)
		if err != nil {
			return Resolution{}, err
		}

		switch res := res.(type) {
		case BinaryResponse:
			return r.finish(ctx, record, res, opts)
		case TextResponse:
			doc, _, err := parseText(res)
			if err != nil {
				return Resolution{}, fmt.Errorf("parse confirmation page: %w", err)
			}
			var listing []FileEntry
			if !confirmed {
				listing = r.adapter.FileListing(doc)
			}
			if len(listing) == 0 {
				return Resolution{}, r.unknownResponse(res)
			}

			// a single file is not worth remembering as a choice
			if len(listing) > 1 {
				record.Listing = listing
				err = r.checkpoint(ctx, record)
				if err != nil {
					return Resolution{}, err
				}
			}

			entry, err := pickFile(listing, opts.Filename)
			if err != nil {
				return Resolution{}, err
			}
			r.tel.ReportDebug(report_resolver_resolve, "confirming", entry.Filename, entry.Url)
			target = entry.Url
			confirmed = true
		default:
			// the session returned neither kind of response, usually nil
			err := &UnknownResponseError{Url: target}
			r.tel.ReportBroken(report_resolver_resolve, fmt.Errorf("%w: %T", err, res))
			return Resolution{}, err
		}
	}
}

func (r Resolver) overview(ctx context.Context, link string) (*goquery.Document, error) {
	doc, err := r.session.FetchPageAuthenticated(ctx, link)
	if err != nil {
		r.tel.ReportBroken(report_resolver_overview, fmt.Errorf("fetch: %w", err), link)
		return nil, err
	}
	if !r.adapter.RequiresLogin(doc) {
		return doc, nil
	}

	performed, err := r.session.Login(ctx)
	if err != nil {
		r.tel.ReportBroken(report_resolver_overview, fmt.Errorf("login: %w", err))
		return nil, err
	}
	r.tel.ReportDebug(report_resolver_overview, "logged in", performed)

	doc, err = r.session.FetchPageAuthenticated(ctx, link)
	if err != nil {
		r.tel.ReportBroken(report_resolver_overview, fmt.Errorf("fetch after login: %w", err), link)
		return nil, err
	}
	if r.adapter.RequiresLogin(doc) {
		err := fmt.Errorf("%w: %s still asks to sign in after logging in", ErrAuth, link)
		r.tel.ReportBroken(report_resolver_overview, err)
		return nil, err
	}
	return doc, nil
}

// dispatch fetches a download link, a server asking to wait is honored once per link.
func (r Resolver) dispatch(ctx context.Context, link string) (DownloadResponse, error) {
	waited := false
	for {
		res, err := r.session.Download(ctx, link)
		if err != nil {
			r.tel.ReportBroken(report_resolver_dispatch, fmt.Errorf("download: %w", err), link)
			return nil, err
		}
		text, ok := res.(TextResponse)
		if !ok {
			return res, nil
		}
		if text.Url == "" {
			text.Url = link
		}

		_, body, err := parseText(text)
		if err != nil {
			return nil, fmt.Errorf("parse download response: %w", err)
		}

		outcome, seconds := classifyText(body)
		switch outcome {
		case outcome_quota:
			return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, link)
		case outcome_concurrency:
			return nil, fmt.Errorf("%w: %s", ErrConcurrencyLimit, link)
		case outcome_wait:
			if waited {
				return nil, fmt.Errorf("%w: %s", ErrThrottled, link)
			}
			waited = true
			r.tel.ReportWarning(report_resolver_dispatch, "server asked to wait", seconds, link)
			err := r.sleep.Sleep(ctx, time.Duration(seconds)*time.Second)
			if err != nil {
				return nil, err
			}
			continue
		}
		return text, nil
	}
}

func pickFile(listing []FileEntry, filename string) (FileEntry, error) {
	if filename == "" {
		return listing[0], nil
	}
	for _, entry := range listing {
		if entry.Filename == filename {
			return entry, nil
		}
	}
	for _, entry := range listing {
		if strings.EqualFold(entry.Filename, filename) {
			return entry, nil
		}
	}
	names := make([]string, len(listing))
	for i, entry := range listing {
		names[i] = entry.Filename
	}
	return FileEntry{}, invalidArgument(
		"file %q is not offered, available: %s",
		filename, strings.Join(names, ", "),
	)
}

func (r Resolver) finish(ctx context.Context, record Record, res BinaryResponse, opts ResolveOptions) (Resolution, error) {
	saved, err := r.streamer.Save(ctx, res.Body, res.Filename, opts.DestFolder)
	if err != nil {
		return Resolution{}, err
	}

	record.Filename = SafeFilename(res.Filename)
	record.Broken = false
	err = r.checkpoint(ctx, record)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Record: record, Saved: saved}, nil
}

func (r Resolver) unknownResponse(res TextResponse) error {
	out := &UnknownResponseError{Url: res.Url}
	if r.dumper != nil {
		path, err := r.dumper.Dump("html", res.Body)
		if err != nil {
			r.tel.ReportWarning(report_resolver_resolve, fmt.Errorf("dump unknown response: %w", err))
		}
		out.DumpPath = path
	}
	r.tel.ReportBroken(report_resolver_resolve, out)
	return out
}

func (r Resolver) checkpoint(ctx context.Context, record Record) error {
	err := r.cache.Update(ctx, record)
	if err != nil {
		return err
	}
	return r.cache.Save(ctx)
}
