package service

import (
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zjregee/aip/internal/models"
)

func TestBuildChatMessages(t *testing.T) {
	t.Parallel()

	parts := []models.PromptPart{
		{Kind: models.PartKindSystem, Content: "You review {{data.lang}} code.", OptionsStr: strPtr("{cache: true}")},
		{Kind: models.PartKindUser, Content: "{{#if data.skip}}ignored{{/if}}\n"},
		{Kind: models.PartKindUser, Content: "Review {{input}} & \"quotes\""},
		{Kind: models.PartKindAssistant, Content: "Sure."},
	}
	msgs, err := BuildChatMessages(parts, map[string]any{
		"data":  map[string]any{"lang": "Go", "skip": false},
		"input": "main.go",
	})
	if err != nil {
		t.Fatalf("BuildChatMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	if msgs[0].Role != schema.System || msgs[0].Content != "You review Go code." || !IsCached(msgs[0]) {
		t.Fatalf("unexpected system message %#v", msgs[0])
	}
	if msgs[1].Role != schema.User || msgs[1].Content != `Review main.go & "quotes"` || IsCached(msgs[1]) {
		t.Fatalf("unexpected user message %#v", msgs[1])
	}
	if msgs[2].Role != schema.Assistant || msgs[2].Content != "Sure." {
		t.Fatalf("unexpected assistant message %#v", msgs[2])
	}
}

func TestBuildChatMessagesTemplatedOptions(t *testing.T) {
	t.Parallel()

	parts := []models.PromptPart{
		{Kind: models.PartKindUser, Content: "Hello", OptionsStr: strPtr("cache: {{data.cache}}")},
	}

	msgs, err := BuildChatMessages(parts, map[string]any{"data": map[string]any{"cache": false}})
	if err != nil {
		t.Fatalf("BuildChatMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "Hello" || IsCached(msgs[0]) {
		t.Fatalf("unexpected messages %#v", msgs)
	}
}

func TestBuildChatMessagesInvalidOptions(t *testing.T) {
	t.Parallel()

	parts := []models.PromptPart{
		instruction("first"),
		{Kind: models.PartKindSystem, Content: "Hello", OptionsStr: strPtr("{cache: [")},
	}

	_, err := BuildChatMessages(parts, nil)
	var partErr *PromptPartError
	if !errors.As(err, &partErr) {
		t.Fatalf("expected PromptPartError, got %v", err)
	}
	if partErr.Index != 1 || partErr.Kind != models.PartKindSystem {
		t.Fatalf("unexpected part error %#v", partErr)
	}
}

func TestBuildChatMessagesEmpty(t *testing.T) {
	t.Parallel()

	msgs, err := BuildChatMessages([]models.PromptPart{instruction(" \n\t")}, nil)
	if err != nil {
		t.Fatalf("BuildChatMessages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %#v", msgs)
	}
}
