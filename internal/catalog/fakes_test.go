package catalog

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const testBase = "https://forum.test"

func newDoc(link, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		panic(err)
	}
	doc.Url, _ = url.Parse(link)
	return doc
}

type fakeSession struct {
	// pages are served to both anonymous and authenticated fetches.
	pages map[string]string
	// authPages take priority over pages for authenticated fetches, each fetch consumes one
	// entry until only the last one is left.
	authPages map[string][]string
	// downloads work like authPages.
	downloads map[string][]DownloadResponse

	loginErr error

	fetches       []string
	downloadCalls []string
	loginCalls    int
}

func (s *fakeSession) calls() int {
	return len(s.fetches) + len(s.downloadCalls) + s.loginCalls
}

func (s *fakeSession) FetchPage(ctx context.Context, link string) (*goquery.Document, error) {
	s.fetches = append(s.fetches, link)
	body, ok := s.pages[link]
	if !ok {
		return nil, &StatusError{Url: link, Code: 404}
	}
	return newDoc(link, body), nil
}

func (s *fakeSession) FetchPageAuthenticated(ctx context.Context, link string) (*goquery.Document, error) {
	queue, ok := s.authPages[link]
	if !ok {
		return s.FetchPage(ctx, link)
	}
	s.fetches = append(s.fetches, link)
	body := queue[0]
	if len(queue) > 1 {
		s.authPages[link] = queue[1:]
	}
	return newDoc(link, body), nil
}

func (s *fakeSession) Login(ctx context.Context) (bool, error) {
	s.loginCalls++
	if s.loginErr != nil {
		return false, s.loginErr
	}
	return true, nil
}

func (s *fakeSession) Download(ctx context.Context, link string) (DownloadResponse, error) {
	s.downloadCalls = append(s.downloadCalls, link)
	queue, ok := s.downloads[link]
	if !ok || len(queue) == 0 {
		return nil, &StatusError{Url: link, Code: 404}
	}
	res := queue[0]
	if len(queue) > 1 {
		s.downloads[link] = queue[1:]
	}
	return res, nil
}

func binary(filename, contents string) BinaryResponse {
	return BinaryResponse{
		Body:     io.NopCloser(strings.NewReader(contents)),
		Filename: filename,
		Size:     int64(len(contents)),
	}
}

func text(link, body string) TextResponse {
	return TextResponse{Url: link, Body: []byte(body)}
}

// testAdapter understands the deliberately tiny markup produced by the helpers below.
type testAdapter struct{}

func (testAdapter) RootURL() string {
	return testBase + "/files/"
}

func (testAdapter) CategoryURL(id int64) string {
	return fmt.Sprintf("%s/files/category/%d/", testBase, id)
}

func (testAdapter) ListingURL(category Category, page int, opts ListingOptions) string {
	return fmt.Sprintf(
		"%s?page=%d&sort=%s&order=%s&per=%d",
		category.Url, page, opts.SortKey, opts.SortOrder, opts.PageSize,
	)
}

func (testAdapter) Categories(doc *goquery.Document) []Category {
	var out []Category
	doc.Find("a.category").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		id, err := ParseCategoryID(href)
		if err != nil {
			return
		}
		out = append(out, Category{Id: id, Label: sel.Text(), Url: href})
	})
	return out
}

func (testAdapter) PageOfRecords(doc *goquery.Document) ([]Record, int) {
	var records []Record
	doc.Find("li.record").Each(func(_ int, sel *goquery.Selection) {
		id, _ := strconv.ParseInt(sel.AttrOr("data-id", ""), 10, 64)
		record := Record{
			Id:    id,
			Title: sel.Find("a").Text(),
			Url:   sel.Find("a").AttrOr("href", ""),
		}
		if d, ok := sel.Attr("data-downloads"); ok {
			n, _ := strconv.ParseInt(d, 10, 64)
			record.Downloads = &n
		}
		if desc := sel.Find("p").Text(); desc != "" {
			record.Description = desc
		}
		records = append(records, record)
	})
	_, total, _ := ParsePageIndicator(doc.Find(".pages").Text())
	return records, total
}

func (testAdapter) RecordDetails(doc *goquery.Document) RecordDetails {
	details := RecordDetails{Description: doc.Find(".description").Text()}
	doc.Find("dl dt").Each(func(_ int, sel *goquery.Selection) {
		details.Info = append(details.Info, InfoField{
			Name:  sel.Text(),
			Value: sel.Next().Text(),
		})
	})
	return details
}

func (testAdapter) DownloadLink(doc *goquery.Document) (string, bool) {
	return doc.Find("a.download").Attr("href")
}

func (testAdapter) FileListing(doc *goquery.Document) []FileEntry {
	var out []FileEntry
	doc.Find("li.file a").Each(func(_ int, sel *goquery.Selection) {
		out = append(out, FileEntry{
			Filename: sel.Text(),
			Url:      sel.AttrOr("href", ""),
		})
	})
	return out
}

func (testAdapter) RequiresLogin(doc *goquery.Document) bool {
	return doc.Find("a.sign-in").Length() > 0
}

type testRecord struct {
	id          int64
	title       string
	description string
}

func listingPage(indicator string, records ...testRecord) string {
	var out strings.Builder
	out.WriteString("<html><body><ul>")
	for _, r := range records {
		out.WriteString(fmt.Sprintf(
			`<li class="record" data-id="%d" data-downloads="%d"><a href="%s/files/file/%d-x/">%s</a>`,
			r.id, r.id*10, testBase, r.id, r.title,
		))
		if r.description != "" {
			out.WriteString(fmt.Sprintf("<p>%s</p>", r.description))
		}
		out.WriteString("</li>")
	}
	out.WriteString("</ul>")
	if indicator != "" {
		out.WriteString(fmt.Sprintf(`<div class="pages">%s</div>`, indicator))
	}
	out.WriteString("</body></html>")
	return out.String()
}

func recordUrl(id int64) string {
	return fmt.Sprintf("%s/files/file/%d-x/", testBase, id)
}

func overviewPage(description, downloadLink string) string {
	link := ""
	if downloadLink != "" {
		link = fmt.Sprintf(`<a class="download" href="%s">Download</a>`, downloadLink)
	}
	return fmt.Sprintf(
		`<html><body><div class="description">%s</div><dl><dt>Version</dt><dd>1.2</dd></dl>%s</body></html>`,
		description, link,
	)
}

const signInPage = `<html><body><a class="sign-in" href="/login/">Sign In</a></body></html>`

func confirmationPage(files ...FileEntry) string {
	var out strings.Builder
	out.WriteString("<html><body><ul>")
	for _, f := range files {
		out.WriteString(fmt.Sprintf(`<li class="file"><a href="%s">%s</a></li>`, f.Url, f.Filename))
	}
	out.WriteString("</ul></body></html>")
	return out.String()
}

type memStore struct {
	mutex          sync.Mutex
	categories     []Category
	hasCategories  bool
	records        map[int64][]Record
	recordSaves    int
	categorySaves  int
	failRecordSave error
}

func (s *memStore) LoadCategories(ctx context.Context) ([]Category, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Category(nil), s.categories...), s.hasCategories, nil
}

func (s *memStore) SaveCategories(ctx context.Context, categories []Category) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.categorySaves++
	s.categories = append([]Category(nil), categories...)
	s.hasCategories = true
	return nil
}

func (s *memStore) LoadRecords(ctx context.Context) (map[int64][]Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := map[int64][]Record{}
	for k, v := range s.records {
		out[k] = append([]Record(nil), v...)
	}
	return out, nil
}

func (s *memStore) SaveRecords(ctx context.Context, records map[int64][]Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.failRecordSave != nil {
		return s.failRecordSave
	}
	s.recordSaves++
	s.records = map[int64][]Record{}
	for k, v := range records {
		s.records[k] = append([]Record(nil), v...)
	}
	return nil
}

type fakeSleep struct {
	slept []time.Duration
}

func (s *fakeSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type memDumper struct {
	dumps [][]byte
}

func (d *memDumper) Dump(ext string, contents []byte) (string, error) {
	d.dumps = append(d.dumps, contents)
	return fmt.Sprintf("/dumps/%d.%s", len(d.dumps), ext), nil
}
