package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-todo/internal/model"
)

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		in, title, link string
	}{
		{in: "Boodschappen", title: "Boodschappen"},
		{in: "  Read paper | https://arxiv.org/abs/1 ", title: "Read paper", link: "https://arxiv.org/abs/1"},
		{in: "a | b | c", title: "a", link: "b | c"},
		{in: " | https://x.y", title: "", link: "https://x.y"},
		{in: "", title: "", link: ""},
	}
	for _, tt := range tests {
		title, link := parseAddArgs(tt.in)
		assert.Equal(t, tt.title, title, tt.in)
		assert.Equal(t, tt.link, link, tt.in)
	}
}

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	id, err = parseTaskID("#3")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	for _, bad := range []string{"", "abc", "0", "-4", "1.5"} {
		_, err := parseTaskID(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCallback(t *testing.T) {
	action, id, ok := parseCallback("complete:5")
	require.True(t, ok)
	assert.Equal(t, cbCompletePrefix, action)
	assert.Equal(t, 5, id)

	action, id, ok = parseCallback("undo:7")
	require.True(t, ok)
	assert.Equal(t, cbUndoPrefix, action)
	assert.Equal(t, 7, id)

	action, _, ok = parseCallback("delete:9")
	require.True(t, ok)
	assert.Equal(t, cbDeletePrefix, action)

	_, _, ok = parseCallback("delete:x")
	assert.False(t, ok)
	_, _, ok = parseCallback("archive:1")
	assert.False(t, ok)
}

func TestRenderTaskList_Empty(t *testing.T) {
	text, markup := renderTaskList("2026-10-17", nil)
	assert.Nil(t, markup)
	assert.Contains(t, text, "2026-10-17")
	assert.Contains(t, text, textEmpty)
}

func TestRenderTaskList_Buttons(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Title: "Open task"},
		{ID: 2, Title: "Finished", Completed: true, Link: "https://example.com"},
	}

	text, markup := renderTaskList("2026-10-17", tasks)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)

	first := markup.InlineKeyboard[0]
	require.Len(t, first, 2)
	require.NotNil(t, first[0].CallbackData)
	assert.Equal(t, "complete:1", *first[0].CallbackData)
	assert.Equal(t, "delete:1", *first[1].CallbackData)

	second := markup.InlineKeyboard[1]
	assert.Equal(t, "undo:2", *second[0].CallbackData)

	assert.Contains(t, text, "#1</b> Open task")
	assert.Contains(t, text, `<a href="https://example.com">Finished</a>`)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "short", shortTitle("  short ", 10))
	assert.Equal(t, "two words", shortTitle("two\nwords", 10))
	assert.Equal(t, "abcd…", shortTitle("abcdefgh", 5))
	assert.Equal(t, "é", shortTitle("éé", 1))
}
