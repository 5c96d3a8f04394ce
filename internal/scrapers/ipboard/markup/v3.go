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

// V3 understands IP.Board 3 with the IP.Downloads application, links there are query string
// based (`index.php?app=downloads&showcat=12`).
type V3 struct {
	base *url.URL
}

func NewV3(baseUrl string) (V3, error) {
	base, err := parseBase(baseUrl)
	if err != nil {
		return V3{}, err
	}
	return V3{base: base}, nil
}

var v3SortKeys = map[catalog.SortKey]string{
	catalog.SORT_NAME:      "file_name",
	catalog.SORT_DATE:      "file_submitted",
	catalog.SORT_UPDATED:   "file_updated",
	catalog.SORT_DOWNLOADS: "file_downloads",
	catalog.SORT_VIEWS:     "file_views",
}

func (a V3) RootURL() string {
	return resolve(a.base, "index.php?app=downloads")
}

func (a V3) CategoryURL(id int64) string {
	return resolve(a.base, fmt.Sprintf("index.php?app=downloads&showcat=%d", id))
}

func (a V3) ListingURL(category catalog.Category, page int, opts catalog.ListingOptions) string {
	link := category.Url
	if link == "" {
		link = a.CategoryURL(category.Id)
	}
	sortBy, ok := v3SortKeys[opts.SortKey]
	if !ok {
		sortBy = v3SortKeys[catalog.SORT_NAME]
	}
	order := string(opts.SortOrder)
	if order == "" {
		order = string(catalog.ORDER_ASC)
	}
	perPage := opts.PageSize
	if perPage <= 0 {
		perPage = catalog.DefaultPageSize
	}
	// pages are addressed by the offset of their first row
	return withQuery(link, map[string]string{
		"sort_by":    sortBy,
		"sort_order": order,
		"num":        strconv.Itoa(perPage),
		"st":         strconv.Itoa(max(page-1, 0) * perPage),
	})
}

func (a V3) Categories(doc *goquery.Document) []catalog.Category {
	return categoriesIn(doc, doc.Find(`td.col_c_forum h4 a[href*="showcat="]`))
}

func (a V3) PageOfRecords(doc *goquery.Document) ([]catalog.Record, int) {
	var records []catalog.Record
	doc.Find("div.idm_category_row").Each(func(_ int, row *goquery.Selection) {
		title, ok := firstAnchor(doc, row.Find(`h3 a[href*="showfile="]`))
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
			Description: htmlutil.SelectionText(row.Find("p.idm_desc")),
			Author:      htmlutil.SelectionText(row.Find("span.idm_author a").First()),
		}
		row.Find("ul.idm_file_stats li").Each(func(_ int, stat *goquery.Selection) {
			text := strings.ToLower(htmlutil.SelectionText(stat))
			switch {
			case strings.Contains(text, "download"):
				record.Downloads = count(text)
			case strings.Contains(text, "view"):
				record.Views = count(text)
			}
		})
		records = append(records, record)
	})

	return records, pageCount(doc.Find(".pagination li.pagejump"))
}

func (a V3) RecordDetails(doc *goquery.Document) catalog.RecordDetails {
	details := catalog.RecordDetails{
		Description: htmlutil.SelectionText(doc.Find("div.idm_description")),
	}
	doc.Find("#file_info li").Each(func(_ int, item *goquery.Selection) {
		field, ok := labelledValue(item, "strong.title")
		if ok {
			details.Info = append(details.Info, field)
		}
	})
	return details
}

func (a V3) DownloadLink(doc *goquery.Document) (string, bool) {
	anchor, ok := firstAnchor(doc, doc.Find("a.download_button"))
	if !ok {
		return "", false
	}
	return anchor.Url.String(), true
}

func (a V3) FileListing(doc *goquery.Document) []catalog.FileEntry {
	var files []catalog.FileEntry
	doc.Find("ul.idm_file_list li").Each(func(_ int, item *goquery.Selection) {
		anchor, ok := firstAnchor(doc, item.Find("a.download_button"))
		if !ok {
			return
		}
		name := htmlutil.SelectionText(item.Find(".name"))
		if name == "" {
			return
		}
		files = append(files, catalog.FileEntry{
			Filename: name,
			Url:      anchor.Url.String(),
			Info:     htmlutil.SelectionText(item.Find(".desc")),
		})
	})
	return files
}

func (a V3) RequiresLogin(doc *goquery.Document) bool {
	return doc.Find("#sign_in").Length() > 0
}

func (a V3) LoginForm() ipboard.LoginForm {
	return ipboard.LoginForm{
		Path:          resolve(a.base, "index.php?app=core&module=global&section=login"),
		UsernameField: "ips_username",
		PasswordField: "ips_password",
		TokenFields:   []string{"auth_key"},
		SignedOut:     a.RequiresLogin,
	}
}
