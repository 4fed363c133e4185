package sitemap

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/tech-arch1tect/ecostep/config"
	"go.uber.org/fx"
)

const namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Page is one public, crawlable path.
type Page struct {
	Path       string
	ChangeFreq string
	Priority   float64
}

// DefaultPages lists the static pages worth indexing.
var DefaultPages = []Page{
	{Path: "/", ChangeFreq: "weekly", Priority: 1.0},
	{Path: "/signup/", ChangeFreq: "monthly", Priority: 0.8},
	{Path: "/login/", ChangeFreq: "monthly", Priority: 0.8},
	{Path: "/pre_intro/", ChangeFreq: "monthly", Priority: 0.7},
	{Path: "/forgot-password/", ChangeFreq: "yearly", Priority: 0.3},
}

// DisallowedPaths are kept out of search engines.
var DisallowedPaths = []string{
	"/logout/",
	"/reset-password/",
	"/email/",
	"/ratelimit-error/",
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type Service struct {
	baseURL string
	pages   []Page
}

func NewService(baseURL string, pages []Page) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		pages:   pages,
	}
}

func (s *Service) URL(path string) string {
	return s.baseURL + path
}

// Sitemap renders the sitemaps.org document for the configured pages.
func (s *Service) Sitemap() ([]byte, error) {
	set := urlSet{XMLNS: namespace}
	for _, p := range s.pages {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        s.URL(p.Path),
			ChangeFreq: p.ChangeFreq,
			Priority:   fmt.Sprintf("%.1f", p.Priority),
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func (s *Service) Robots() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, path := range DisallowedPaths {
		b.WriteString("Disallow: " + path + "\n")
	}
	b.WriteString("\nSitemap: " + s.URL("/sitemap.xml") + "\n")
	return b.String()
}

func ProvideService(cfg *config.Config) *Service {
	return NewService(cfg.App.URL, DefaultPages)
}

var Module = fx.Options(
	fx.Provide(ProvideService),
)
