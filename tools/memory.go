// Package tools wires the memory store capability into protocol tools.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/internal/logger"
	"github.com/memgate/memgate/memory"
	"github.com/memgate/memgate/protocol"
	"go.uber.org/zap"
)

const (
	// ToolStore is the name of the store tool.
	ToolStore = "store-information"
	// ToolSearch is the name of the search tool.
	ToolSearch = "search-information"

	maxContentLength = 4096
)

// MemoryToolSet builds identity-scoped memory tools. One set exists per
// session actor; the identity is fixed at construction so no handler can
// ever address another identity's data.
type MemoryToolSet struct {
	store       memory.Store
	identity    string
	quotaMax    int
	searchLimit int
	log         *logger.FieldLogger
}

// NewMemoryToolSet creates the tool set for one bound identity.
func NewMemoryToolSet(store memory.Store, identity string, quotaMax, searchLimit int) *MemoryToolSet {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &MemoryToolSet{
		store:       store,
		identity:    identity,
		quotaMax:    quotaMax,
		searchLimit: searchLimit,
		log:         logger.Module("tools").With(zap.String("identity", identity)),
	}
}

// Register registers the memory tools and prompts on the given registry.
func (ts *MemoryToolSet) Register(registry *protocol.Registry) error {
	if err := registry.RegisterTool(&protocol.Tool{
		Name:        ToolStore,
		Description: "Store information to remember for this user. Use whenever the user shares a fact, preference, or anything worth remembering.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thingToRemember": map[string]any{
					"type":        "string",
					"description": "The information to remember",
				},
			},
			"required": []string{"thingToRemember"},
		},
		Handler: ts.handleStore,
	}); err != nil {
		return err
	}

	if err := registry.RegisterTool(&protocol.Tool{
		Name:        ToolSearch,
		Description: "Search previously stored information for this user.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look for",
				},
			},
			"required": []string{"query"},
		},
		Handler: ts.handleSearch,
	}); err != nil {
		return err
	}

	registry.RegisterPrompt(&protocol.Prompt{
		Name:        "memory-usage",
		Description: "How to use the memory tools",
		Text: "Use store-information to remember facts and preferences the " +
			"user shares, and search-information to recall them later. All " +
			"memories are private to the current user.",
	})

	return nil
}

// handleStore validates input, applies the quota policy, and persists the
// content. At the quota cap the call is rejected and nothing is written.
func (ts *MemoryToolSet) handleStore(ctx context.Context, args map[string]any) (string, error) {
	content, ok := args["thingToRemember"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return "", errors.Validation("thingToRemember must be a non-empty string")
	}
	if len(content) > maxContentLength {
		return "", errors.Validation(fmt.Sprintf("thingToRemember exceeds %d characters", maxContentLength))
	}

	count, err := ts.store.Count(ctx, ts.identity)
	if err != nil {
		return "", errors.UpstreamFailure("count", err)
	}
	if count >= ts.quotaMax {
		ts.log.Info("Store rejected, quota reached", zap.Int("quota_max", ts.quotaMax))
		return "", errors.QuotaExceeded(ts.quotaMax)
	}

	entry, err := ts.store.Save(ctx, ts.identity, content)
	if err != nil {
		return "", errors.UpstreamFailure("save", err)
	}

	ts.log.Debug("Memory stored", zap.String("entry_id", entry.ID))
	return "Remembered.", nil
}

// handleSearch validates input and returns ranked matches.
func (ts *MemoryToolSet) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", errors.Validation("query must be a non-empty string")
	}

	results, err := ts.store.Search(ctx, ts.identity, query, ts.searchLimit)
	if err != nil {
		return "", errors.UpstreamFailure("search", err)
	}

	if len(results) == 0 {
		return "No stored information matched.", nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, r.Content))
	}
	return sb.String(), nil
}
