package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePage models a browser tab: selectors can be present globally or only on
// a given URL, and clicking the submit button can reveal a selector.
type fakePage struct {
	url          string
	visits       []string
	html         map[string]string
	urlSelectors map[string]map[string]bool
	present      map[string]bool
	filled       map[string]string
	clicks       []string
	presses      []string
	clickErr     map[string]error
	afterSubmit  string
	gotoErr      error
}

func newFakePage() *fakePage {
	return &fakePage{
		html:         make(map[string]string),
		urlSelectors: make(map[string]map[string]bool),
		present:      make(map[string]bool),
		filled:       make(map[string]string),
		clickErr:     make(map[string]error),
	}
}

func (p *fakePage) addPage(url, html string, selectors ...string) {
	p.html[url] = html
	set := make(map[string]bool)
	for _, s := range selectors {
		set[s] = true
	}
	p.urlSelectors[url] = set
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	if p.gotoErr != nil {
		return p.gotoErr
	}
	p.url = url
	p.visits = append(p.visits, url)
	return nil
}

func (p *fakePage) Exists(selector string) (bool, error) {
	return p.present[selector] || p.urlSelectors[p.url][selector], nil
}

func (p *fakePage) Click(selector string) error {
	if err := p.clickErr[selector]; err != nil {
		return err
	}
	p.clicks = append(p.clicks, selector)
	if selector == submitSelector {
		p.submitted()
	}
	return nil
}

func (p *fakePage) Fill(selector, value string) error {
	p.filled[selector] = value
	return nil
}

func (p *fakePage) Press(selector, key string) error {
	p.presses = append(p.presses, selector+":"+key)
	if key == "Enter" {
		p.submitted()
	}
	return nil
}

func (p *fakePage) submitted() {
	if p.afterSubmit != "" {
		p.present[p.afterSubmit] = true
	}
}

func (p *fakePage) WaitFor(selector string, timeout time.Duration) error {
	if ok, _ := p.Exists(selector); ok {
		return nil
	}
	return fmt.Errorf("timeout %s exceeded waiting for %q", timeout, selector)
}

func (p *fakePage) Content() (string, error) {
	html, ok := p.html[p.url]
	if !ok {
		return "", errors.New("no content")
	}
	return html, nil
}

func (p *fakePage) URL() string {
	return p.url
}

type closeRecorder struct {
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}
