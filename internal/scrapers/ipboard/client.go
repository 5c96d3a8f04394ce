// Package ipboard implements catalog.Session for forums running the downloads application of
// Invision Power Board.
package ipboard

import (
	"bytes"
	"context"
	"fmt"
	"forumdl/internal/catalog"
	"forumdl/internal/components/assert"
	"forumdl/internal/components/telemetry"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_page = "client.fetch-page"
	report_client_login      = "client.login"
	report_client_download   = "client.download"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl  string
	Username string
	Password string
	Login    LoginForm

	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
	// Output receives transcripts of every request when set.
	Output telemetry.HttpOutput
}

// Client keeps two http clients around: an anonymous one for listing pages (which should look
// the same to everyone) and one carrying the session cookies.
type Client struct {
	BaseUrl *url.URL

	anonymous     *resty.Client
	authenticated *resty.Client
	username      string
	password      string
	login         LoginForm

	tel telemetry.API
}

func newHttpClient(baseUrl *url.URL, limiter *rate.Limiter, tel telemetry.API, output telemetry.HttpOutput) *resty.Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetTimeout(time.Second * 30)

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(httpClient, tel, output)

	return httpClient
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotNil(opts.Login.SignedOut)
	tel = telemetry.NewScopedAPI("ipboard", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", catalog.ErrInvalidArgument, opts.BaseUrl)
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	// a burst of at least 1 means no request is ever dropped, only delayed
	limiter := rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))

	anonymous := newHttpClient(baseUrl, limiter, tel, telemetry.PrefixOutput("anon", opts.Output))
	anonymous.SetCookieJar(nil)
	anonymous.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	authenticated := newHttpClient(baseUrl, limiter, tel, telemetry.PrefixOutput("auth", opts.Output))
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	authenticated.SetCookieJar(jar)
	// files are allowed to be served from another host
	authenticated.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &Client{
		BaseUrl:       baseUrl,
		anonymous:     anonymous,
		authenticated: authenticated,
		username:      opts.Username,
		password:      opts.Password,
		login:         opts.Login,
		tel:           tel,
	}, nil
}

// Host identifies the catalog instance this client talks to.
func (c *Client) Host() string {
	return c.BaseUrl.Hostname()
}

func (c *Client) fetch(ctx context.Context, httpClient *resty.Client, link string) (*goquery.Document, error) {
	c.tel.ReportDebug(report_client_fetch_page, link)

	res, err := httpClient.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_page, fmt.Errorf("fetch: %w", err), link)
		return nil, err
	}
	if res.IsError() {
		err := &catalog.StatusError{Url: link, Code: res.StatusCode()}
		c.tel.ReportBroken(report_client_fetch_page, err)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_page, fmt.Errorf("parse: %w", err), link)
		return nil, err
	}
	doc.Url = finalUrl(res)
	return doc, nil
}

// finalUrl is the url a response actually came from after redirects.
func finalUrl(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	parsed, _ := url.Parse(res.Request.URL)
	return parsed
}

func (c *Client) FetchPage(ctx context.Context, link string) (*goquery.Document, error) {
	return c.fetch(ctx, c.anonymous, link)
}

func (c *Client) FetchPageAuthenticated(ctx context.Context, link string) (*goquery.Document, error) {
	return c.fetch(ctx, c.authenticated, link)
}

// Cookies returns the session cookies for the base url.
func (c *Client) Cookies() []*http.Cookie {
	jar := c.authenticated.GetClient().Jar
	if jar == nil {
		return nil
	}
	return jar.Cookies(c.BaseUrl)
}
