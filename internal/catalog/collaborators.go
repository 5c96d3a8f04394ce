package catalog

import (
	"context"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Session performs the network side of things for the engine. Documents returned by it should
// have their Url set so adapters can resolve relative links.
//
// note: fault injection point
type Session interface {
	// FetchPage performs an anonymous GET.
	FetchPage(ctx context.Context, url string) (*goquery.Document, error)
	// FetchPageAuthenticated performs a GET with the current session.
	FetchPageAuthenticated(ctx context.Context, url string) (*goquery.Document, error)
	// Login returns true if a login was actually performed and false if the session was already
	// valid. It fails with ErrAuth on bad credentials or missing auth artifacts.
	Login(ctx context.Context) (bool, error)
	// Download fetches a download link with the current session and classifies the response.
	Download(ctx context.Context, url string) (DownloadResponse, error)
}

// DownloadResponse is either a BinaryResponse or a TextResponse.
type DownloadResponse interface {
	isDownloadResponse()
}

// BinaryResponse is a response that came with a filename bearing disposition, the caller owns
// Body and must close it.
type BinaryResponse struct {
	Body     io.ReadCloser
	Filename string
	// Size is -1 when the server did not report a length.
	Size int64
}

func (BinaryResponse) isDownloadResponse() {}

// TextResponse is any other response, fully buffered.
type TextResponse struct {
	Url  string
	Body []byte
}

func (TextResponse) isDownloadResponse() {}

// Adapter translates the markup of one server version into catalog data. Implementations are
// stateless and interchangeable.
type Adapter interface {
	// CategoryURL returns the url of a category's listing given only its id.
	CategoryURL(id int64) string
	// ListingURL returns the url of the given 1-indexed page of a category's listing.
	ListingURL(category Category, page int, opts ListingOptions) string
	// RootURL returns the url of the page listing the top level category groups.
	RootURL() string

	// Categories extracts every category anchor on a page.
	Categories(doc *goquery.Document) []Category
	// PageOfRecords extracts the records on a listing page along with the total page count, the
	// page count is 0 if the page does not say.
	PageOfRecords(doc *goquery.Document) ([]Record, int)
	// RecordDetails extracts the description and info fields of a record's overview page.
	RecordDetails(doc *goquery.Document) RecordDetails
	// DownloadLink extracts the download action from a record's overview page.
	DownloadLink(doc *goquery.Document) (string, bool)
	// FileListing extracts the files offered by a confirmation page in server order.
	FileListing(doc *goquery.Document) []FileEntry
	// RequiresLogin reports whether the page exposes a sign-in affordance instead of content.
	RequiresLogin(doc *goquery.Document) bool
}
