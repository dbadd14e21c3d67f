package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/libservice"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

const testChain = `# Release Chain

> Cut and ship a release.

## Step 1: Tag

**Prompt:**

` + "```" + `
Tag the release for [Project Name].
` + "```" + `

## Step 2: Ship

**Prompt:**

` + "```" + `
Publish the artifacts.
` + "```" + `
`

func testServer(t *testing.T) *Server {
	t.Helper()

	root, store := testutil.TestRoot(t)
	testutil.Seed(t, root, "prompts/prd-generator.md", "---\ntitle: PRD Generator\ntags: [planning]\n---\n# PRD Generator\n\n> Drafts product requirement documents.\n")
	testutil.Seed(t, root, "chains/release-chain.md", testChain)

	lib := library.New(store, testutil.QuietLogger())
	return New(libservice.New(lib, testutil.QuietLogger()))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we call the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_item":
		result, err = srv.getItem(ctx, req)
	case "search_library":
		result, err = srv.searchLibrary(ctx, req)
	case "suggest_items":
		result, err = srv.suggestItems(ctx, req)
	case "list_items":
		result, err = srv.listItems(ctx, req)
	case "library_stats":
		result, err = srv.libraryStats(ctx, req)
	case "save_item":
		result, err = srv.saveItem(ctx, req)
	case "get_chain":
		result, err = srv.getChain(ctx, req)
	case "list_chains":
		result, err = srv.listChains(ctx, req)
	case "start_chain":
		result, err = srv.startChain(ctx, req)
	case "advance_chain":
		result, err = srv.advanceChain(ctx, req)
	case "jump_chain":
		result, err = srv.jumpChain(ctx, req)
	case "chain_status":
		result, err = srv.chainStatus(ctx, req)
	case "end_chain":
		result, err = srv.endChain(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetItem(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_item", map[string]interface{}{"name": "prd-generator"})
	if r.IsError {
		t.Fatalf("get_item error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "# PRD Generator") {
		t.Errorf("content = %q", resultText(r))
	}

	// Miss: not an error, the payload carries candidates instead of an item.
	r = callTool(t, srv, "get_item", map[string]interface{}{"name": "zzz-nothing"})
	if r.IsError {
		t.Fatalf("miss should not be a tool error: %s", resultText(r))
	}
	var miss libservice.ItemResult
	if err := json.Unmarshal([]byte(resultText(r)), &miss); err != nil {
		t.Fatalf("unmarshal miss: %v", err)
	}
	if miss.Item != nil {
		t.Errorf("miss returned item %q", miss.Item.ID)
	}
}

func TestSearchLibrary(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "search_library", map[string]interface{}{"query": "requirement"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	var results []models.ScoredItem
	if err := json.Unmarshal([]byte(resultText(r)), &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) == 0 {
		t.Error("expected results for 'requirement'")
	}
}

func TestSaveItemTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "save_item", map[string]interface{}{
		"category": "skills",
		"name":     "Profiling",
		"content":  "# Profiling\n\npprof-driven optimisation.",
		"tags":     "performance, go",
	})
	if r.IsError {
		t.Fatalf("save error: %s", resultText(r))
	}
	if got := resultText(r); got != "created: skills/profiling" {
		t.Errorf("save result = %q", got)
	}

	// Duplicate save is a tool error.
	r = callTool(t, srv, "save_item", map[string]interface{}{
		"category": "skills",
		"name":     "Profiling",
		"content":  "x",
	})
	if !r.IsError {
		t.Error("expected error for duplicate save")
	}
}

func TestListAndStats(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_items", map[string]interface{}{})
	if !strings.Contains(resultText(r), "prompts/prd-generator") {
		t.Errorf("list = %q", resultText(r))
	}

	r = callTool(t, srv, "list_items", map[string]interface{}{"category": "chains"})
	if !strings.Contains(resultText(r), "chains/release-chain") {
		t.Errorf("chains list = %q", resultText(r))
	}

	r = callTool(t, srv, "library_stats", map[string]interface{}{})
	var stats models.Stats
	if err := json.Unmarshal([]byte(resultText(r)), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
}

func TestChainSessionTools(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_chain", map[string]interface{}{"name": "release-chain"})
	if r.IsError {
		t.Fatalf("get_chain error: %s", resultText(r))
	}

	r = callTool(t, srv, "start_chain", map[string]interface{}{
		"chain":   "release-chain",
		"context": `{"project_name":"raido"}`,
	})
	if r.IsError {
		t.Fatalf("start_chain error: %s", resultText(r))
	}
	var view sessionView
	if err := json.Unmarshal([]byte(resultText(r)), &view); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if view.Session.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", view.Session.CurrentStep)
	}
	if !strings.Contains(view.Step.Instruction, "Tag the release for raido.") {
		t.Errorf("instruction = %q", view.Step.Instruction)
	}
	id := view.Session.ID

	r = callTool(t, srv, "advance_chain", map[string]interface{}{"session_id": id})
	_ = json.Unmarshal([]byte(resultText(r)), &view)
	if view.Session.CurrentStep != 2 {
		t.Errorf("after advance step = %d, want 2", view.Session.CurrentStep)
	}

	r = callTool(t, srv, "jump_chain", map[string]interface{}{"session_id": id, "step": 1})
	_ = json.Unmarshal([]byte(resultText(r)), &view)
	if view.Session.CurrentStep != 1 {
		t.Errorf("after jump step = %d, want 1", view.Session.CurrentStep)
	}

	r = callTool(t, srv, "chain_status", map[string]interface{}{"session_id": id})
	_ = json.Unmarshal([]byte(resultText(r)), &view)
	if view.Progress == "" {
		t.Error("expected a progress line")
	}

	r = callTool(t, srv, "end_chain", map[string]interface{}{"session_id": id})
	if got := resultText(r); got != "ended: "+id {
		t.Errorf("end result = %q", got)
	}
	r = callTool(t, srv, "chain_status", map[string]interface{}{"session_id": id})
	if !r.IsError {
		t.Error("expected error after session end")
	}
}

func TestStartChainBadContext(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "start_chain", map[string]interface{}{
		"chain":   "release-chain",
		"context": "not-json",
	})
	if !r.IsError {
		t.Error("expected error for malformed context")
	}
}
