package console

import (
	"testing"

	"github.com/c-bata/go-prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		line  string
		words []string
	}{
		{"", nil},
		{"   ", nil},
		{"open touchmat", []string{"open", "touchmat"}},
		{"  echo   hello  world ", []string{"echo", "hello", "world"}},
		{`echo "hello world"`, []string{"echo", "hello world"}},
		{`echo 'a b' c`, []string{"echo", "a b", "c"}},
		{`echo ""`, []string{"echo", ""}},
	}
	for _, tt := range tests {
		got := splitWords(tt.line)
		if len(tt.words) == 0 {
			assert.Empty(t, got, "line %q", tt.line)
		} else {
			assert.Equal(t, tt.words, got, "line %q", tt.line)
		}
	}
}

func TestLookupCommand(t *testing.T) {
	def := lookupCommand("grab")
	require.NotNil(t, def)
	assert.Equal(t, "grab", def.Name)

	assert.Nil(t, lookupCommand("warp"))
}

func TestCommandTableIsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range commandTable {
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Summary, "command %s", def.Name)
		assert.NotEmpty(t, def.Syntax, "command %s", def.Name)
		assert.NotNil(t, def.Exec, "command %s", def.Name)
		assert.False(t, seen[def.Name], "duplicate command %s", def.Name)
		seen[def.Name] = true
	}
}

func TestCompleteCommandNames(t *testing.T) {
	s := &session{}

	suggests := s.completeText("", "")
	assert.Len(t, suggests, len(commandTable), "empty line offers all commands")

	texts := suggestTexts(s.completeText("gr", "gr"))
	assert.Equal(t, []string{"grab"}, texts)
}

func TestCompleteArguments(t *testing.T) {
	s := &session{}

	texts := suggestTexts(s.completeText("open touchm", "touchm"))
	assert.Equal(t, []string{"touchmat"}, texts)

	texts = suggestTexts(s.completeText("grab hirescamera ", ""))
	assert.Equal(t, []string{"color", "depth", "ir", "points"}, texts)

	texts = suggestTexts(s.completeText("quit ", ""))
	assert.Empty(t, texts)
}

func TestExecuteUnknownCommand(t *testing.T) {
	s := &session{}
	assert.NoError(t, s.execute("   "))
	assert.Error(t, s.execute("warp 9"))
}

func TestExecuteQuit(t *testing.T) {
	s := &session{}
	require.NoError(t, s.execute("quit"))
	assert.True(t, s.quit)
}

func suggestTexts(suggests []prompt.Suggest) []string {
	texts := make([]string, 0, len(suggests))
	for _, s := range suggests {
		texts = append(texts, s.Text)
	}
	return texts
}
