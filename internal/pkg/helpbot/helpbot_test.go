package helpbot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entries = []QA{
	{Question: "How do I mark attendance for a batch?", Answer: "Open Attendance, pick the date and save.", Role: RoleTutor},
	{Question: "How do I add a new student?", Answer: "Go to Students and press Add Student.", Role: RoleTutor},
	{Question: "Where can I see my homework?", Answer: "Open Homework from the student menu.", Role: RoleStudent},
	{Question: "How do I log out?", Answer: "Use Logout in the menu.", Role: RoleAll},
}

func TestTermsDropsStopWordsAndAddsBigrams(t *testing.T) {
	assert.Equal(t, []string{"mark", "attendance", "mark attendance"}, terms("How do I mark the attendance?"))
	assert.Empty(t, terms("the a of"))
}

func TestAskExactQuestionMatches(t *testing.T) {
	bot := New(entries, 0)

	ans := bot.Ask("How do I mark attendance for a batch?", RoleTutor)
	assert.True(t, ans.Matched)
	assert.Equal(t, "Open Attendance, pick the date and save.", ans.Reply)
	require.NotEmpty(t, ans.Scores)
	assert.InDelta(t, 1.0, ans.Scores[0], 1e-9)
}

func TestAskFiltersByRole(t *testing.T) {
	bot := New(entries, 0)

	ans := bot.Ask("How do I mark attendance for a batch?", RoleStudent)
	assert.False(t, ans.Matched)
	assert.Contains(t, ans.Reply, fallbackReply)

	ans = bot.Ask("How do I log out?", RoleStudent)
	assert.True(t, ans.Matched)
}

func TestAskUnknownQueryFallsBack(t *testing.T) {
	bot := New(entries, 0)

	ans := bot.Ask("weather forecast tomorrow", RoleTutor)
	assert.False(t, ans.Matched)
	assert.Equal(t, fallbackReply, ans.Reply)
	assert.Empty(t, ans.Scores)
}

func TestAskPartialQueryListsRelated(t *testing.T) {
	bot := New(entries, 0.99)

	ans := bot.Ask("student", RoleTutor)
	assert.False(t, ans.Matched)
	assert.Equal(t, []string{"How do I add a new student?"}, ans.Related)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qa.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"question":"How do I log out?","answer":"Use Logout."}]`), 0o644))

	bot, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, bot.Size())

	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	_, err = Load(path, 0)
	assert.Error(t, err)
}
