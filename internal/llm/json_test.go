package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			reply: `{"action":"search"}`,
			want:  `{"action":"search"}`,
			ok:    true,
		},
		{
			name:  "fenced",
			reply: "```json\n{\"action\":\"search\"}\n```",
			want:  `{"action":"search"}`,
			ok:    true,
		},
		{
			name:  "surrounded by prose",
			reply: `Sure, here is the plan: {"steps":[{"id":1}]} Hope that helps.`,
			want:  `{"steps":[{"id":1}]}`,
			ok:    true,
		},
		{
			name:  "braces inside strings",
			reply: `{"text":"use {curly} braces and \"quotes\""}`,
			want:  `{"text":"use {curly} braces and \"quotes\""}`,
			ok:    true,
		},
		{
			name:  "no object",
			reply: "I could not produce a plan.",
			ok:    false,
		},
		{
			name:  "unbalanced",
			reply: `{"oops": [1, 2`,
			ok:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.reply)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	got, ok := ExtractArray("Here you go:\n```json\n[\"a\", \"b\"]\n```")
	require.True(t, ok)
	assert.Equal(t, `["a", "b"]`, got)
}

func TestDecodeObject(t *testing.T) {
	var out struct {
		Action string `json:"action"`
		Count  int    `json:"count"`
	}
	err := DecodeObject("```json\n{\"action\":\"click\",\"count\":3}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "click", out.Action)
	assert.Equal(t, 3, out.Count)
}

func TestDecodeObjectBadReply(t *testing.T) {
	var out map[string]any
	err := DecodeObject("no json here", &out)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "no json here", perr.Reply)
}

func TestDecodeArray(t *testing.T) {
	var out []string
	err := DecodeArray(`the types are ["submit","navigation"] as requested`, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"submit", "navigation"}, out)
}

func TestField(t *testing.T) {
	reply := `{"intent":{"action":"search","confidence":0.9}}`
	assert.Equal(t, "search", Field(reply, "intent.action").String())
	assert.InDelta(t, 0.9, Field(reply, "intent.confidence").Float(), 1e-9)
}

func TestFakeClientScript(t *testing.T) {
	fake := &FakeClient{Replies: []string{"one", "two"}}
	ctx := context.Background()

	r1, err := fake.Complete(ctx, []Message{{Role: RoleUser, Content: "a"}})
	require.NoError(t, err)
	r2, err := fake.Complete(ctx, nil)
	require.NoError(t, err)
	r3, err := fake.Complete(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, "one", r1)
	assert.Equal(t, "two", r2)
	assert.Equal(t, "two", r3, "last reply repeats when the script runs out")
	assert.Equal(t, 3, fake.CallCount())
}

func TestFakeClientUnavailable(t *testing.T) {
	fake := &FakeClient{}
	_, err := fake.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient("mystery", "")
	assert.Error(t, err)
}
