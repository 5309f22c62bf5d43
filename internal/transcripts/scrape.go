package transcripts

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/types"
)

// ScrapeSource is a best-effort fallback that pulls earnings call transcripts
// from public transcript pages when the primary API has no data for a period.
type ScrapeSource struct {
	sites   []TranscriptSite
	timeout time.Duration
}

// TranscriptSite defines one site hosting transcripts
type TranscriptSite struct {
	Name      string
	BaseURL   string
	PathTmpl  string // placeholders: {ticker}, {year}, {quarter}
	Selectors SiteSelectors
	RateLimit time.Duration
}

// SiteSelectors defines CSS selectors for extracting transcript data
type SiteSelectors struct {
	Body    string // container holding the call text
	Speaker string // element marking a speaker turn inside a paragraph
}

// NewScrapeSource creates a scraper with the default site list
func NewScrapeSource(timeout time.Duration) *ScrapeSource {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &ScrapeSource{
		sites:   defaultSites(),
		timeout: timeout,
	}
}

func defaultSites() []TranscriptSite {
	return []TranscriptSite{
		{
			Name:     "MotleyFool",
			BaseURL:  "https://www.fool.com",
			PathTmpl: "/earnings/call-transcripts/{ticker}-q{quarter}-{year}-earnings-call-transcript/",
			Selectors: SiteSelectors{
				Body:    "div.article-body, div.tailwind-article-body",
				Speaker: "strong",
			},
			RateLimit: 2 * time.Second,
		},
		{
			Name:     "InvestingCom",
			BaseURL:  "https://www.investing.com",
			PathTmpl: "/equities/{ticker}-earnings-call-transcript-q{quarter}-{year}",
			Selectors: SiteSelectors{
				Body:    "div.articlePage, article",
				Speaker: "b",
			},
			RateLimit: 2 * time.Second,
		},
	}
}

// FetchTranscript tries each site in order until one yields call text.
func (s *ScrapeSource) FetchTranscript(ctx context.Context, ticker string, year, quarter int) (*types.Transcript, error) {
	key, err := types.NewTranscriptKey(ticker, year, quarter)
	if err != nil {
		return nil, err
	}

	for _, site := range s.sites {
		t, err := s.scrapeSite(ctx, site, key)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape transcript site", err, "site", site.Name, "key", key.String())
			time.Sleep(site.RateLimit)
			continue
		}
		if t != nil {
			logger.Info(ctx, "Transcript scraped", "site", site.Name, "key", key.String(), "chars", len(t.RawText))
			return t, nil
		}
		time.Sleep(site.RateLimit)
	}

	return nil, fmt.Errorf("%w: transcript %s", types.ErrNotFound, key)
}

// FetchCompanyProfile is not resolvable from transcript pages.
func (s *ScrapeSource) FetchCompanyProfile(ctx context.Context, ticker string) (*types.CompanyProfile, error) {
	return nil, fmt.Errorf("%w: company profile %s", types.ErrNotFound, strings.ToUpper(strings.TrimSpace(ticker)))
}

func (s *ScrapeSource) scrapeSite(ctx context.Context, site TranscriptSite, key types.TranscriptKey) (*types.Transcript, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(site.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var (
		paragraphs []string
		segments   []types.SpeakerSegment
	)

	c.OnHTML(site.Selectors.Body, func(e *colly.HTMLElement) {
		e.DOM.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if text == "" {
				return
			}
			paragraphs = append(paragraphs, text)

			// A paragraph opening with a bolded name is a speaker turn.
			speaker := strings.TrimSpace(p.Find(site.Selectors.Speaker).First().Text())
			speaker = strings.TrimSuffix(speaker, ":")
			if speaker != "" && strings.HasPrefix(text, speaker) {
				body := strings.TrimSpace(strings.TrimPrefix(text, speaker))
				body = strings.TrimSpace(strings.TrimPrefix(body, ":"))
				if body != "" {
					segments = append(segments, types.SpeakerSegment{Speaker: speaker, Text: body})
				}
			}
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "site", site.Name, "url", r.Request.URL.String())
	})

	path := strings.NewReplacer(
		"{ticker}", strings.ToLower(key.Ticker),
		"{year}", fmt.Sprintf("%d", key.FiscalYear),
		"{quarter}", fmt.Sprintf("%d", key.FiscalQuarter),
	).Replace(site.PathTmpl)
	pageURL := site.BaseURL + path

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	c.Wait()

	raw := strings.Join(paragraphs, "\n\n")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	return &types.Transcript{
		Key:             key,
		RawText:         raw,
		SpeakerSegments: segments,
		SourceURL:       pageURL,
		FetchedAt:       time.Now().UTC(),
	}, nil
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
