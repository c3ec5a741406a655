package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/uxeval/internal/model"
)

func task(name string, ok bool, notes string) model.TaskResult {
	return model.TaskResult{Name: name, Success: ok, Notes: notes}
}

func TestExtract_Score(t *testing.T) {
	s := model.SessionSummary{TaskResults: []model.TaskResult{
		task("a", true, ""), task("b", true, ""), task("c", true, ""), task("d", false, ""),
	}}
	assert.Equal(t, 7.5, Extract(s).OverallScore)
}

func TestExtract_Empty(t *testing.T) {
	a := Extract(model.SessionSummary{})
	assert.NotNil(t, a.ActionItems)
	assert.Empty(t, a.ActionItems)
	assert.Equal(t, 0.0, a.OverallScore)
	assert.Equal(t, "None identified", a.TopFrustration)
}

func TestExtract_Rules(t *testing.T) {
	s := model.SessionSummary{
		Observations: []model.Observation{
			{Type: model.ObservationConfusion, Description: "Agenda vs minutes unclear", Location: "meeting page"},
			{Type: model.ObservationFrustration, Description: "Search returns nothing for 'budget'", Location: "search"},
			{Type: model.ObservationSuccess, Description: "Found the video"},
			{Type: model.ObservationNote, Description: "Missing captions on 2022 videos"},
			{Type: model.ObservationNote, Description: "Footer looks fine"},
			{Type: model.ObservationNote, Description: "There is no transcript link"},
			{Type: model.ObservationUnknown, Description: "Lack of alt text on logos"},
			{Type: model.ObservationNote, Description: "Nothing notable"},
		},
		TaskResults: []model.TaskResult{
			task("find budget vote", false, "Vote table is buried in PDF"),
			task("open latest meeting", true, ""),
			task("download agenda", false, ""),
		},
	}

	a := Extract(s)
	require.Len(t, a.ActionItems, 7)

	assert.Equal(t, model.ActionItem{
		Category: model.CategoryUI, Priority: model.PriorityMedium,
		Issue: "Agenda vs minutes unclear", Location: "meeting page",
		Recommendation: a.ActionItems[0].Recommendation,
	}, a.ActionItems[0])
	assert.Equal(t, model.PriorityHigh, a.ActionItems[1].Priority)
	assert.Equal(t, model.CategoryUI, a.ActionItems[1].Category)

	for _, i := range []int{2, 3, 4} {
		assert.Equal(t, model.CategoryContent, a.ActionItems[i].Category)
		assert.Equal(t, model.PriorityLow, a.ActionItems[i].Priority)
	}
	assert.Equal(t, "Missing captions on 2022 videos", a.ActionItems[2].Issue)
	assert.Equal(t, "There is no transcript link", a.ActionItems[3].Issue)
	assert.Equal(t, "Lack of alt text on logos", a.ActionItems[4].Issue)

	assert.Equal(t, "Task failed: find budget vote", a.ActionItems[5].Issue)
	assert.Equal(t, "Vote table is buried in PDF", a.ActionItems[5].Recommendation)
	assert.Equal(t, model.PriorityHigh, a.ActionItems[5].Priority)
	assert.NotEmpty(t, a.ActionItems[6].Recommendation)

	assert.Equal(t, "Search returns nothing for 'budget'", a.TopFrustration)
	assert.Equal(t, 3.3, a.OverallScore)
}

func TestExtract_TopFrustrationFromFailedTask(t *testing.T) {
	a := Extract(model.SessionSummary{TaskResults: []model.TaskResult{task("find clip", false, "")}})
	assert.Equal(t, "Task failed: find clip", a.TopFrustration)
	assert.Equal(t, 0.0, a.OverallScore)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 6.7, Round1(6.666))
	assert.Equal(t, 7.5, Round1(7.5))
	assert.Equal(t, 0.0, Round1(0.04))
}
