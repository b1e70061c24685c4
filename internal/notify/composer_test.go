package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

func testCourse(source, table, nr string, status model.Status) model.Course {
	return model.Course{
		SourceName: source,
		TableName:  table,
		SourceURL:  "https://example.invalid/" + source,
		Status:     status,
		Fields: model.Fields{
			{Label: "Nr.", Value: nr},
			{Label: "Tag", Value: "Mo"},
			{Label: "Preis", Value: "30 EUR"},
		},
	}
}

func TestComposer_EmptyInputIsNoOp(t *testing.T) {
	_, ok := NewComposer(nil).Compose(nil)
	assert.False(t, ok)
}

func TestComposer_RoundTrip(t *testing.T) {
	old := testCourse("Kraft", "Studio", "4021", model.StatusWaitlist)
	updated := testCourse("Kraft", "Studio", "4021", model.StatusBookable)

	changes := []model.Change{
		{Kind: model.ChangeAdded, Course: testCourse("Kraft", "Studio", "4022", model.StatusBookable)},
		{Kind: model.ChangeStatusUpdated, Course: updated, Old: &old},
		{Kind: model.ChangeRemoved, Course: testCourse("Schwimmen", "Halle", "7001", model.StatusExpired)},
	}

	msg, ok := NewComposer([]string{"Nr."}).Compose(changes)
	require.True(t, ok)

	// Every event appears in exactly one group/section of both renderings.
	for _, body := range []string{msg.Plain, msg.HTML} {
		assert.Equal(t, 1, strings.Count(body, "4022"), "added course must appear exactly once")
		assert.Equal(t, 1, strings.Count(body, "7001"), "removed course must appear exactly once")
		assert.Contains(t, body, "Status: waitlist → bookable")
	}

	// Two-level hierarchy in first-seen order.
	assert.Less(t, strings.Index(msg.Plain, "Kraft"), strings.Index(msg.Plain, "Schwimmen"))
	assert.Contains(t, msg.HTML, "<h1>Kraft</h1>")
	assert.Contains(t, msg.HTML, "<h2>Studio</h2>")
	assert.Contains(t, msg.HTML, "<h1>Schwimmen</h1>")
	assert.Contains(t, msg.HTML, "<h2>Halle</h2>")

	assert.Contains(t, msg.Subject, "3")
}

func TestComposer_EmptySectionsAreSkipped(t *testing.T) {
	changes := []model.Change{
		{Kind: model.ChangeAdded, Course: testCourse("Kraft", "Studio", "4022", model.StatusBookable)},
	}

	msg, ok := NewComposer(nil).Compose(changes)
	require.True(t, ok)

	assert.Contains(t, msg.Plain, "Neue Kurse")
	assert.NotContains(t, msg.Plain, "Statusänderungen")
	assert.NotContains(t, msg.Plain, "Entfernte Kurse")
}

func TestComposer_PriorityFieldsRenderFirst(t *testing.T) {
	course := model.Course{
		SourceName: "Kraft",
		TableName:  "Studio",
		SourceURL:  "https://example.invalid/kraft",
		Status:     model.StatusBookable,
		Fields: model.Fields{
			{Label: "Details", Value: "Langhantel"},
			{Label: "Nr.", Value: "4021"},
			{Label: "Ort", Value: "ZHS Halle 2"},
		},
	}

	msg, ok := NewComposer([]string{"Nr.", "Ort", "Leitung"}).Compose([]model.Change{
		{Kind: model.ChangeAdded, Course: course},
	})
	require.True(t, ok)

	nr := strings.Index(msg.Plain, "Nr.: 4021")
	ort := strings.Index(msg.Plain, "Ort: ZHS Halle 2")
	details := strings.Index(msg.Plain, "Details: Langhantel")
	require.True(t, nr >= 0 && ort >= 0 && details >= 0, "all fields must render:\n%s", msg.Plain)

	// Priority fields come first in their configured order; absent
	// priority labels (Leitung) are simply skipped; the rest keeps its
	// page order.
	assert.Less(t, nr, ort)
	assert.Less(t, ort, details)
	assert.Equal(t, 1, strings.Count(msg.Plain, "Nr.: 4021"), "a priority field must not repeat in the remainder")
	assert.NotContains(t, msg.Plain, "Leitung:")
}

func TestComposer_HTMLEscapesFieldValues(t *testing.T) {
	course := testCourse("Kraft", "Studio", "<script>", model.StatusBookable)

	msg, ok := NewComposer(nil).Compose([]model.Change{{Kind: model.ChangeAdded, Course: course}})
	require.True(t, ok)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.Plain, "<script>")
}
