package markup

import (
	"fmt"
	"forumdl/internal/catalog"
	"forumdl/internal/scrapers/ipboard"
	"forumdl/pkg/htmlutil"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// V4 understands Invision Community 4 with the Downloads application and friendly urls
// (`files/category/12-maps/`).
type V4 struct {
	base *url.URL
}

func NewV4(baseUrl string) (V4, error) {
	base, err := parseBase(baseUrl)
	if err != nil {
		return V4{}, err
	}
	return V4{base: base}, nil
}

var v4SortKeys = map[catalog.SortKey]string{
	catalog.SORT_NAME:      "file_name",
	catalog.SORT_DATE:      "file_submitted",
	catalog.SORT_UPDATED:   "file_updated",
	catalog.SORT_DOWNLOADS: "file_downloads",
	catalog.SORT_VIEWS:     "file_views",
}

func (a V4) RootURL() string {
	return resolve(a.base, "files/")
}

// CategoryURL uses a placeholder slug, the server redirects to the real one.
func (a V4) CategoryURL(id int64) string {
	return resolve(a.base, fmt.Sprintf("files/category/%d-category/", id))
}

// ListingURL ignores the page size, the server decides it.
func (a V4) ListingURL(category catalog.Category, page int, opts catalog.ListingOptions) string {
	link := category.Url
	if link == "" {
		link = a.CategoryURL(category.Id)
	}
	sortBy, ok := v4SortKeys[opts.SortKey]
	if !ok {
		sortBy = v4SortKeys[catalog.SORT_NAME]
	}
	order := string(opts.SortOrder)
	if order == "" {
		order = string(catalog.ORDER_ASC)
	}
	return withQuery(link, map[string]string{
		"sortby":        sortBy,
		"sortdirection": order,
		"page":          strconv.Itoa(max(page, 1)),
	})
}

func (a V4) Categories(doc *goquery.Document) []catalog.Category {
	return categoriesIn(doc, doc.Find(`.ipsDataItem_title a[href*="/category/"]`))
}

func (a V4) PageOfRecords(doc *goquery.Document) ([]catalog.Record, int) {
	var records []catalog.Record
	doc.Find("li.ipsDataItem").Each(func(_ int, row *goquery.Selection) {
		title, ok := firstAnchor(doc, row.Find(`.ipsDataItem_title a[href*="/file/"]`))
		if !ok {
			return
		}
		link := title.Url.String()
		id, err := catalog.ParseRecordID(link)
		if err != nil {
			return
		}

		record := catalog.Record{
			Id:          id,
			Url:         link,
			Title:       title.Name,
			Description: htmlutil.SelectionText(row.Find(".ipsDataItem_meta .ipsType_richText")),
			Author:      htmlutil.SelectionText(row.Find(`.ipsDataItem_meta a[href*="/profile/"]`).First()),
		}
		row.Find("ul.ipsDataItem_stats li").Each(func(_ int, stat *goquery.Selection) {
			kind := strings.ToLower(htmlutil.SelectionText(stat.Find(".ipsDataItem_stats_type")))
			number := htmlutil.SelectionText(stat.Find(".ipsDataItem_stats_number"))
			switch {
			case strings.Contains(kind, "download"):
				record.Downloads = count(number)
			case strings.Contains(kind, "view"):
				record.Views = count(number)
			}
		})
		records = append(records, record)
	})

	return records, a.pageCount(doc)
}

func (a V4) pageCount(doc *goquery.Document) int {
	pagination := doc.Find("ul.ipsPagination").First()
	if pages, ok := pagination.Attr("data-pages"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(pages))
		if err == nil && n > 0 {
			return n
		}
	}
	return pageCount(pagination.Find("li.ipsPagination_pageJump"))
}

func (a V4) RecordDetails(doc *goquery.Document) catalog.RecordDetails {
	details := catalog.RecordDetails{
		Description: htmlutil.SelectionText(doc.Find(`section [data-role="description"]`)),
	}
	doc.Find("ul.cFileInfo li").Each(func(_ int, item *goquery.Selection) {
		name := htmlutil.SelectionText(item.Find("strong").First())
		if name == "" {
			return
		}
		details.Info = append(details.Info, catalog.InfoField{
			Name:  name,
			Value: htmlutil.SelectionText(item.Find(".cFileInfoData")),
		})
	})
	return details
}

func (a V4) DownloadLink(doc *goquery.Document) (string, bool) {
	anchor, ok := firstAnchor(doc, doc.Find(`a.ipsButton[href*="do=download"]`))
	if !ok {
		return "", false
	}
	return anchor.Url.String(), true
}

func (a V4) FileListing(doc *goquery.Document) []catalog.FileEntry {
	var files []catalog.FileEntry
	doc.Find("li.ipsDataItem").Each(func(_ int, item *goquery.Selection) {
		anchor, ok := firstAnchor(doc, item.Find(`a[href*="do=download"]`))
		if !ok {
			return
		}
		name := htmlutil.SelectionText(item.Find(".ipsDataItem_title"))
		if name == "" {
			return
		}
		files = append(files, catalog.FileEntry{
			Filename: name,
			Url:      anchor.Url.String(),
			Info:     htmlutil.SelectionText(item.Find(".ipsDataItem_meta")),
		})
	})
	return files
}

func (a V4) RequiresLogin(doc *goquery.Document) bool {
	return doc.Find("#elUserSignIn").Length() > 0
}

func (a V4) LoginForm() ipboard.LoginForm {
	return ipboard.LoginForm{
		Path:          resolve(a.base, "login/"),
		UsernameField: "auth",
		PasswordField: "password",
		TokenFields:   []string{"csrfKey"},
		SignedOut:     a.RequiresLogin,
	}
}
