// Package notify renders detected changes into notifications and delivers
// them through the configured channels.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

// Message is one rendered notification, carrying both representations of
// the same content.
type Message struct {
	Subject string
	Plain   string
	HTML    string
}

// Composer renders change events grouped by source and table. Priority
// holds the field labels rendered first for every course; remaining fields
// follow in their page order.
type Composer struct {
	priority []string
}

// NewComposer creates a composer with the given priority field labels.
func NewComposer(priority []string) *Composer {
	return &Composer{priority: priority}
}

// tableGroup collects the events of one (source, table) pair into the
// three fixed sections.
type tableGroup struct {
	table   string
	added   []model.Change
	updated []model.Change
	removed []model.Change
}

type sourceGroup struct {
	source string
	tables []*tableGroup
}

// Compose renders the change set into one combined message. The second
// return value is false when there is nothing to send. Both renderings are
// produced from the same grouped structure, so they can differ only in
// formatting, never in content.
func (c *Composer) Compose(changes []model.Change) (Message, bool) {
	if len(changes) == 0 {
		return Message{}, false
	}

	groups := groupChanges(changes)

	var plain, htmlBody strings.Builder
	for _, sg := range groups {
		fmt.Fprintf(&htmlBody, "<h1>%s</h1>", html.EscapeString(sg.source))
		fmt.Fprintf(&plain, "%s\n\n", sg.source)
		for _, tg := range sg.tables {
			fmt.Fprintf(&htmlBody, "<h2>%s</h2>", html.EscapeString(tg.table))
			fmt.Fprintf(&plain, "%s\n", tg.table)
			c.renderSection(&plain, &htmlBody, "🟢 Neue Kurse", tg.added)
			c.renderSection(&plain, &htmlBody, "🔁 Statusänderungen", tg.updated)
			c.renderSection(&plain, &htmlBody, "❌ Entfernte Kurse", tg.removed)
			plain.WriteString("\n")
		}
	}

	return Message{
		Subject: fmt.Sprintf("ZHS Kurs-Update (%d Änderungen)", len(changes)),
		Plain:   plain.String(),
		HTML:    htmlBody.String(),
	}, true
}

// groupChanges builds the source → table hierarchy, preserving the
// first-seen order of every group.
func groupChanges(changes []model.Change) []*sourceGroup {
	var groups []*sourceGroup
	bySource := make(map[string]*sourceGroup)

	for _, ch := range changes {
		sg, ok := bySource[ch.Course.SourceName]
		if !ok {
			sg = &sourceGroup{source: ch.Course.SourceName}
			bySource[ch.Course.SourceName] = sg
			groups = append(groups, sg)
		}

		var tg *tableGroup
		for _, existing := range sg.tables {
			if existing.table == ch.Course.TableName {
				tg = existing
				break
			}
		}
		if tg == nil {
			tg = &tableGroup{table: ch.Course.TableName}
			sg.tables = append(sg.tables, tg)
		}

		switch ch.Kind {
		case model.ChangeAdded:
			tg.added = append(tg.added, ch)
		case model.ChangeStatusUpdated:
			tg.updated = append(tg.updated, ch)
		case model.ChangeRemoved:
			tg.removed = append(tg.removed, ch)
		}
	}
	return groups
}

// renderSection writes one of the three fixed sections into both bodies.
// Empty sections are skipped entirely.
func (c *Composer) renderSection(plain, htmlBody *strings.Builder, heading string, changes []model.Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(htmlBody, "<h3>%s</h3>", html.EscapeString(heading))
	fmt.Fprintf(plain, "%s\n\n", heading)
	for _, ch := range changes {
		for _, line := range c.courseLines(ch) {
			fmt.Fprintf(htmlBody, "%s<br>", line.html)
			fmt.Fprintf(plain, "%s\n", line.plain)
		}
		htmlBody.WriteString("<br>")
		plain.WriteString("\n")
	}
}

type renderedLine struct {
	plain string
	html  string
}

func textLine(s string) renderedLine {
	return renderedLine{plain: s, html: html.EscapeString(s)}
}

// courseLines renders one change: a header line with the grouping
// attributes and link, the prioritized fields that are present, then all
// remaining fields in page order. StatusChanged events additionally get
// the old → new transition.
func (c *Composer) courseLines(ch model.Change) []renderedLine {
	course := ch.Course

	lines := []renderedLine{
		{
			plain: fmt.Sprintf("%s (%s) – Status: %s", course.SourceName, course.TableName, course.Status),
			html: fmt.Sprintf("<b>%s</b> (%s) – Status: %s",
				html.EscapeString(course.SourceName), html.EscapeString(course.TableName), course.Status),
		},
		{
			plain: course.SourceURL,
			html:  fmt.Sprintf("<a href=%q>%s</a>", course.SourceURL, html.EscapeString(course.SourceURL)),
		},
	}

	if ch.Kind == model.ChangeStatusUpdated && ch.Old != nil {
		lines = append(lines, textLine(fmt.Sprintf("Status: %s → %s", ch.Old.Status, course.Status)))
	}

	shown := make(map[string]bool, len(c.priority))
	for _, label := range c.priority {
		if v, ok := course.Fields.Get(label); ok {
			lines = append(lines, textLine(fmt.Sprintf("%s: %s", label, v)))
			shown[label] = true
		}
	}
	for _, f := range course.Fields {
		if !shown[f.Label] {
			lines = append(lines, textLine(fmt.Sprintf("%s: %s", f.Label, f.Value)))
		}
	}
	return lines
}
