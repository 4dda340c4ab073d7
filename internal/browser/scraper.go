// Package browser drives authenticated feed searches through headless
// Chrome and turns rendered result pages into raw posts.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// Selectors are the CSS hooks used to lift post fields out of the rendered
// search page. They are configuration, not code: the feed markup changes
// under us and operators override these without a rebuild.
type Selectors struct {
	Post       string `mapstructure:"post"`
	Author     string `mapstructure:"author"`
	Body       string `mapstructure:"body"`
	ProfileURL string `mapstructure:"profile_url"`
}

// DefaultSelectors returns the hooks matching the current feed markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Post:       "div[data-urn]",
		Author:     ".update-components-actor__title",
		Body:       ".update-components-text",
		ProfileURL: "a.update-components-actor__meta-link",
	}
}

// Config controls the scraper.
type Config struct {
	SearchBaseURL     string
	UserAgent         string
	NavigationTimeout time.Duration
	ProfileBaseDir    string
	MaxPosts          int
	ScrollPasses      int
	Headless          bool
	Selectors         Selectors
}

// Scraper implements extractor.Browser with chromedp. The scheduler
// guarantees at most one in-flight fetch per candidate; the scraper only
// has to keep candidates' Chrome profiles apart.
type Scraper struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Scraper.
func New(cfg Config, logger *zap.Logger) (*Scraper, error) {
	if cfg.SearchBaseURL == "" {
		return nil, fmt.Errorf("search base URL is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = 25
	}
	if cfg.ScrollPasses <= 0 {
		cfg.ScrollPasses = 3
	}
	if cfg.Selectors == (Selectors{}) {
		cfg.Selectors = DefaultSelectors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{cfg: cfg, logger: logger}, nil
}

// FetchPosts renders a keyword search inside the candidate's browser
// profile and extracts the visible posts in page order.
func (s *Scraper) FetchPosts(
	ctx context.Context,
	candidate extractor.Candidate,
	keyword extractor.Keyword,
	constraints extractor.SearchConstraints,
) ([]extractor.RawPost, error) {
	target := SearchURL(s.cfg.SearchBaseURL, keyword, constraints)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, s.allocatorOptions(candidate)...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
	defer cancel()

	var (
		finalURL string
		dtos     []postDTO
	)
	actions := []chromedp.Action{
		s.networkSetup(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
	}
	actions = append(actions, s.scrollActions()...)
	actions = append(actions, chromedp.Evaluate(s.collectScript(), &dtos))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, classifyFetchErr(err)
	}
	if isLoginPage(finalURL) {
		// The profile's session is gone; retrying the same navigation will
		// only loop back to the login wall.
		return nil, extractor.FatalFetch(fmt.Errorf("session expired for candidate %s", candidate.ID))
	}

	posts := make([]extractor.RawPost, 0, len(dtos))
	for _, dto := range dtos {
		if len(posts) >= s.cfg.MaxPosts {
			break
		}
		posts = append(posts, dto.toRawPost())
	}
	s.logger.Debug("scraped search page",
		zap.String("candidate", candidate.ID),
		zap.String("keyword", string(keyword)),
		zap.Int("posts", len(posts)),
	)
	return posts, nil
}

func (s *Scraper) allocatorOptions(candidate extractor.Candidate) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if s.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if s.cfg.ProfileBaseDir != "" && candidate.CredentialRef != "" {
		profile := filepath.Join(s.cfg.ProfileBaseDir, candidate.CredentialRef)
		opts = append(opts, chromedp.UserDataDir(profile))
	}
	return opts
}

func (s *Scraper) networkSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// scrollActions nudge lazy-loaded results onto the page.
func (s *Scraper) scrollActions() []chromedp.Action {
	actions := make([]chromedp.Action, 0, s.cfg.ScrollPasses*2)
	for i := 0; i < s.cfg.ScrollPasses; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(750*time.Millisecond),
		)
	}
	return actions
}

// collectScript builds the in-page JS that lifts posts into DTOs using the
// configured selectors.
func (s *Scraper) collectScript() string {
	sel := s.cfg.Selectors
	return fmt.Sprintf(`
(() => Array.from(document.querySelectorAll(%q)).map(el => {
	const text = q => { const n = el.querySelector(q); return n ? n.innerText.trim() : ""; };
	const href = q => { const n = el.querySelector(q); return n ? n.href : ""; };
	const urn = el.getAttribute("data-urn") || "";
	return {
		post_id: urn,
		author: text(%q),
		body: text(%q),
		profile_url: href(%q),
		post_url: urn ? "https://www.linkedin.com/feed/update/" + urn + "/" : "",
	};
}))()`, sel.Post, sel.Author, sel.Body, sel.ProfileURL)
}

type postDTO struct {
	PostID     string `json:"post_id"`
	Author     string `json:"author"`
	Body       string `json:"body"`
	ProfileURL string `json:"profile_url"`
	PostURL    string `json:"post_url"`
}

func (d postDTO) toRawPost() extractor.RawPost {
	return extractor.RawPost{
		PostID:     d.PostID,
		AuthorName: d.Author,
		ProfileURL: d.ProfileURL,
		Body:       d.Body,
		PostURL:    d.PostURL,
	}
}

// SearchURL encodes a keyword search with its date window and sort order.
func SearchURL(base string, keyword extractor.Keyword, constraints extractor.SearchConstraints) string {
	values := url.Values{}
	values.Set("keywords", string(keyword))
	if constraints.Window != "" {
		values.Set("datePosted", fmt.Sprintf(`["%s"]`, constraints.Window))
	}
	if constraints.Sort != "" {
		values.Set("sortBy", fmt.Sprintf(`["%s"]`, constraints.Sort))
	}
	return strings.TrimRight(base, "/") + "/?" + values.Encode()
}

// classifyFetchErr maps chromedp failures onto the retry taxonomy:
// timeouts are worth retrying, broken navigation is not.
func classifyFetchErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		// The chain is cut on purpose: this is the scraper's own navigation
		// timeout, not run-level cancellation, and it must stay retryable.
		return extractor.TransientFetch(fmt.Errorf("navigation timeout: %v", err))
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "net::ERR_TIMED_OUT") || strings.Contains(msg, "net::ERR_NETWORK_CHANGED") {
		return extractor.TransientFetch(err)
	}
	return extractor.FatalFetch(err)
}

func isLoginPage(pageURL string) bool {
	return strings.Contains(pageURL, "/login") || strings.Contains(pageURL, "/checkpoint")
}
