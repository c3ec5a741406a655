package scenario

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ashita-ai/uxeval/internal/model"
	"github.com/ashita-ai/uxeval/internal/observe"
)

// Smoke returns one structural scenario per built-in persona, keyed by
// persona ID. Profiles without a matching scenario are skipped.
func Smoke(baseURL string, profiles []model.PersonaProfile) []Scenario {
	var out []Scenario
	for _, p := range profiles {
		switch p.ID {
		case "concerned-citizen":
			out = append(out, &citizen{profile: p, base: baseURL})
		case "journalist":
			out = append(out, &journalist{profile: p, base: baseURL})
		case "accessibility-auditor":
			out = append(out, &auditor{profile: p, base: baseURL})
		}
	}
	return out
}

// citizen browses from the home page to a meeting listing.
type citizen struct {
	profile model.PersonaProfile
	base    string
}

func (s *citizen) Persona() model.PersonaProfile { return s.profile }

func (s *citizen) Run(ctx context.Context, b Browser, c *observe.Collector) error {
	home, err := step(ctx, b, c, s.base, "home", "Landing page")
	if err != nil {
		return err
	}
	if home.Status() >= 400 {
		c.RecordTask("Open home page", false, 0, fmt.Sprintf("HTTP %d", home.Status()))
		c.AddObservation(model.ObservationFrustration, "Home page did not load", home.URL())
		return nil
	}
	c.RecordTask("Open home page", true, 0, "")

	var listing Page
	task(c, "Find recent meetings", func() (bool, string) {
		href, text, ok := findLink(home.Document(), "meeting")
		if !ok {
			c.AddObservation(model.ObservationConfusion, "No link mentioning meetings on the home page", home.URL())
			return false, "no meetings link"
		}
		c.TrackClick()
		target, err := resolve(home.URL(), href)
		if err != nil {
			return false, err.Error()
		}
		listing, err = step(ctx, b, c, target, "meetings", "Meetings listing")
		if err != nil {
			return false, err.Error()
		}
		if listing.Status() >= 400 {
			c.AddObservation(model.ObservationFrustration,
				fmt.Sprintf("Link %q leads to an error page", strings.TrimSpace(text)), listing.URL())
			return false, fmt.Sprintf("HTTP %d", listing.Status())
		}
		c.AddObservation(model.ObservationSuccess, "Found the meetings listing from the home page", listing.URL())
		return true, ""
	})

	if listing == nil || listing.Status() >= 400 {
		return nil
	}
	task(c, "Open a meeting", func() (bool, string) {
		links := FindAll(listing.Document(), atom.A)
		if len(links) == 0 {
			c.AddObservation(model.ObservationConfusion, "Meetings listing has no links to individual meetings", listing.URL())
			return false, "no meeting links"
		}
		return true, fmt.Sprintf("%d links on listing", len(links))
	})
	return nil
}

// journalist goes straight to search.
type journalist struct {
	profile model.PersonaProfile
	base    string
}

func (s *journalist) Persona() model.PersonaProfile { return s.profile }

func (s *journalist) Run(ctx context.Context, b Browser, c *observe.Collector) error {
	home, err := step(ctx, b, c, s.base, "home", "Landing page")
	if err != nil {
		return err
	}

	task(c, "Locate search", func() (bool, string) {
		if hasSearch(home.Document()) {
			return true, ""
		}
		c.AddObservation(model.ObservationFrustration, "No search box on the home page", home.URL())
		return false, "no search input"
	})

	task(c, "Search for a council vote", func() (bool, string) {
		c.TrackSearch()
		target, err := resolve(s.base, "/search?q="+url.QueryEscape("council vote"))
		if err != nil {
			return false, err.Error()
		}
		results, err := step(ctx, b, c, target, "search-results", "Search results for council vote")
		if err != nil {
			return false, err.Error()
		}
		if results.Status() >= 400 {
			c.AddObservation(model.ObservationFrustration, "Search returned an error page", results.URL())
			return false, fmt.Sprintf("HTTP %d", results.Status())
		}
		if len(FindAll(results.Document(), atom.A)) == 0 {
			c.AddObservation(model.ObservationConfusion, "Search results page lists nothing to open", results.URL())
			return false, "no results"
		}
		return true, ""
	})
	return nil
}

// auditor checks the home page for common WCAG failures.
type auditor struct {
	profile model.PersonaProfile
	base    string
}

func (s *auditor) Persona() model.PersonaProfile { return s.profile }

func (s *auditor) Run(ctx context.Context, b Browser, c *observe.Collector) error {
	home, err := step(ctx, b, c, s.base, "home", "Landing page")
	if err != nil {
		return err
	}
	doc, loc := home.Document(), home.URL()

	check := func(name string, problems []string) {
		task(c, name, func() (bool, string) {
			for _, p := range problems {
				c.AddObservation(model.ObservationFrustration, p, loc)
			}
			if len(problems) > 0 {
				return false, fmt.Sprintf("%d issue(s)", len(problems))
			}
			return true, ""
		})
	}

	check("Page declares a language", langProblems(doc))
	check("Images have alt text", altProblems(doc))
	check("Form fields are labelled", labelProblems(doc))
	check("Page has a main heading", headingProblems(doc))
	return nil
}

func langProblems(doc *html.Node) []string {
	for _, n := range FindAll(doc, atom.Html) {
		if v, ok := Attr(n, "lang"); ok && strings.TrimSpace(v) != "" {
			return nil
		}
	}
	return []string{"The html element is missing a lang attribute"}
}

func altProblems(doc *html.Node) []string {
	var out []string
	for _, img := range FindAll(doc, atom.Img) {
		if _, ok := Attr(img, "alt"); !ok {
			src, _ := Attr(img, "src")
			out = append(out, fmt.Sprintf("Image %s is missing alt text", src))
		}
	}
	return out
}

func labelProblems(doc *html.Node) []string {
	labelled := map[string]bool{}
	for _, l := range FindAll(doc, atom.Label) {
		if id, ok := Attr(l, "for"); ok {
			labelled[id] = true
		}
	}
	var out []string
	for _, in := range FindAll(doc, atom.Input) {
		if typ, _ := Attr(in, "type"); typ == "hidden" || typ == "submit" || typ == "button" {
			continue
		}
		if v, ok := Attr(in, "aria-label"); ok && v != "" {
			continue
		}
		id, _ := Attr(in, "id")
		if id != "" && labelled[id] {
			continue
		}
		name, _ := Attr(in, "name")
		out = append(out, fmt.Sprintf("Input %q has no label", name))
	}
	return out
}

func headingProblems(doc *html.Node) []string {
	if len(FindAll(doc, atom.H1)) == 0 {
		return []string{"No h1 heading on the page"}
	}
	return nil
}

// findLink returns the first link whose text or href mentions word.
func findLink(doc *html.Node, word string) (href, text string, ok bool) {
	for _, a := range FindAll(doc, atom.A) {
		h, has := Attr(a, "href")
		if !has || h == "" {
			continue
		}
		t := TextContent(a)
		if strings.Contains(strings.ToLower(t), word) || strings.Contains(strings.ToLower(h), word) {
			return h, t, true
		}
	}
	return "", "", false
}

func hasSearch(doc *html.Node) bool {
	for _, in := range FindAll(doc, atom.Input) {
		typ, _ := Attr(in, "type")
		name, _ := Attr(in, "name")
		if typ == "search" || name == "q" || name == "search" {
			return true
		}
	}
	return false
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("scenario: parse base url %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("scenario: parse link %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
