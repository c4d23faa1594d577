package scrape

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Page is the readable content extracted from one fetched URL. It lives only
// for the duration of an enrichment pass and is never persisted.
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
	Author      string
	Published   string
}

// Fetcher fetches one URL and extracts its readable content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

type Kind string

const (
	HTTPKind     Kind = "http"
	ChromedpKind Kind = "chromedp"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
)

var ErrUnsupportedFetcher = errors.New("scrape: unsupported fetcher kind")

// New builds a Fetcher. The plain HTTP fetcher is the default; chromedp is
// for deployments that need JS-rendered pages and ship a headless browser.
func New(kind Kind, timeout time.Duration, maxChars int) (Fetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	switch kind {
	case HTTPKind, "":
		return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, MaxChars: maxChars}, nil
	case ChromedpKind:
		return &ChromedpFetcher{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
