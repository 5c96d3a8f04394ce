package ipboard

import (
	"bytes"
	"context"
	"fmt"
	"forumdl/internal/catalog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// LoginForm describes where the sign in form lives and how to tell that a page was served to a
// signed out visitor.
type LoginForm struct {
	Path          string
	UsernameField string
	PasswordField string
	// TokenFields are hidden inputs of which at least one must be present on the form, the server
	// rejects a login without them.
	TokenFields []string
	SignedOut   func(doc *goquery.Document) bool
}

func (c *Client) Login(ctx context.Context) (bool, error) {
	loginError := func(err error) error {
		return fmt.Errorf("%w: %w", catalog.ErrAuth, err)
	}

	doc, err := c.FetchPageAuthenticated(ctx, c.login.Path)
	if err != nil {
		return false, fmt.Errorf("login page: %w", err)
	}
	if !c.login.SignedOut(doc) {
		c.tel.ReportDebug(report_client_login, "session still valid")
		return false, nil
	}
	if c.username == "" || c.password == "" {
		return false, loginError(fmt.Errorf("no credentials configured"))
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("input[type=password]").Length() > 0
	}).First()
	if form.Length() == 0 {
		err := fmt.Errorf("could not find login form")
		c.tel.ReportBroken(report_client_login, err, doc.Url.String())
		return false, loginError(err)
	}

	fields := map[string]string{}
	form.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name != "" {
			fields[name] = s.AttrOr("value", "")
		}
	})
	hasToken := len(c.login.TokenFields) == 0
	for _, token := range c.login.TokenFields {
		if fields[token] != "" {
			hasToken = true
			break
		}
	}
	if !hasToken {
		err := fmt.Errorf("could not find any of %v on login form", c.login.TokenFields)
		c.tel.ReportBroken(report_client_login, err)
		return false, loginError(err)
	}
	fields[c.login.UsernameField] = c.username
	fields[c.login.PasswordField] = c.password

	action := doc.Url
	if href, ok := form.Attr("action"); ok && href != "" {
		parsed, err := url.Parse(href)
		if err != nil {
			return false, loginError(fmt.Errorf("parse form action: %w", err))
		}
		action = doc.Url.ResolveReference(parsed)
	}

	res, err := c.authenticated.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(action.String())
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return false, err
	}
	if res.IsError() {
		return false, &catalog.StatusError{Url: action.String(), Code: res.StatusCode()}
	}

	result, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse login result: %w", err))
		return false, err
	}
	result.Url = finalUrl(res)
	if c.login.SignedOut(result) {
		c.tel.ReportWarning(report_client_login, fmt.Errorf("credentials rejected"), c.username)
		return false, loginError(fmt.Errorf("credentials rejected"))
	}

	c.tel.ReportDebug(report_client_login, "signed in", c.username)
	return true, nil
}
