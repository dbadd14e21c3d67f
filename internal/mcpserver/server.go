// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/libservice"
	"github.com/starford/raido/internal/models"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *libservice.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *libservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Fetch a library item by name, id, or alias. "+
			"Lookup is fuzzy; on a miss the result lists the nearest candidates."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Item name or id (e.g. prompts/prd-generator)")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("search_library",
		mcp.WithDescription("Keyword search across names, titles, descriptions, tags, and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
	), s.searchLibrary)

	s.mcp.AddTool(mcp.NewTool("suggest_items",
		mcp.WithDescription("Recommend library items for a free-form task description, "+
			"matched against intent patterns."),
		mcp.WithString("message", mcp.Required(), mcp.Description("What you are trying to do")),
		mcp.WithNumber("limit", mcp.Description("Max suggestions (default 5)")),
	), s.suggestItems)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List all indexed items, optionally filtered by category "+
			"(prompts, templates, skills, chains)."),
		mcp.WithString("category", mcp.Description("Optional category filter")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("library_stats",
		mcp.WithDescription("Return index statistics: totals per category, tag counts, chain count."),
	), s.libraryStats)

	s.mcp.AddTool(mcp.NewTool("save_item",
		mcp.WithDescription("Create a new library item. Content MUST follow the canonical "+
			"item format (optional YAML frontmatter, Markdown body). Read the contract "+
			"first via the get_item_contract tool or the raido://item-format resource."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Target category: prompts, templates, skills, or chains")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Item name; the file name is derived from it")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Raido item format contract")),
		mcp.WithString("subcategory", mcp.Description("Optional subdirectory inside the category")),
		mcp.WithString("description", mcp.Description("Optional one-line summary")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
	), s.saveItem)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the canonical Raido item format contract. "+
			"Call this before saving items to ensure correct structure."),
	), s.getItemContract)

	s.mcp.AddTool(mcp.NewTool("get_chain",
		mcp.WithDescription("Fetch a parsed workflow chain with its steps."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Chain name or id (e.g. chains/feature-development)")),
	), s.getChain)

	s.mcp.AddTool(mcp.NewTool("list_chains",
		mcp.WithDescription("List all parsed workflow chains."),
	), s.listChains)

	s.mcp.AddTool(mcp.NewTool("start_chain",
		mcp.WithDescription("Start a session over a workflow chain. Returns the session "+
			"and the first step with context variables substituted."),
		mcp.WithString("chain", mcp.Required(), mcp.Description("Chain name or id")),
		mcp.WithString("context", mcp.Description("Optional JSON object of context variables, e.g. {\"project_name\":\"raido\"}")),
	), s.startChain)

	s.mcp.AddTool(mcp.NewTool("advance_chain",
		mcp.WithDescription("Advance a chain session to its next step."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by start_chain")),
	), s.advanceChain)

	s.mcp.AddTool(mcp.NewTool("jump_chain",
		mcp.WithDescription("Move a chain session to a specific step number."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by start_chain")),
		mcp.WithNumber("step", mcp.Required(), mcp.Description("Target step number (1-based)")),
	), s.jumpChain)

	s.mcp.AddTool(mcp.NewTool("chain_status",
		mcp.WithDescription("Return a chain session's current step and progress line."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by start_chain")),
	), s.chainStatus)

	s.mcp.AddTool(mcp.NewTool("end_chain",
		mcp.WithDescription("End a chain session and discard its state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by start_chain")),
	), s.endChain)

	// Resource: item format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://item-format", "Item Format Contract",
			mcp.WithResourceDescription("Canonical Markdown item format that all library items must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.GetItem(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Item == nil {
		return jsonResult(res), nil
	}
	return mcp.NewToolResultText(res.Item.Content), nil
}

func (s *Server) searchLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) suggestItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	suggestions, err := s.svc.Suggest(ctx, message, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(suggestions) == 0 {
		return mcp.NewToolResultText("no matching suggestions"), nil
	}
	return jsonResult(suggestions), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat := req.GetString("category", "")

	var (
		items []*models.Item
		err   error
	)
	if cat != "" {
		items, err = s.svc.ByCategory(ctx, cat)
	} else {
		items, err = s.svc.AllItems(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, it := range items {
		lines = append(lines, it.ID)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) libraryStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats), nil
}

func (s *Server) saveItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	save := models.SaveRequest{
		Category:    category,
		Subcategory: req.GetString("subcategory", ""),
		Name:        name,
		Content:     content,
	}
	save.Metadata.Description = req.GetString("description", "")
	if tags := req.GetString("tags", ""); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				save.Metadata.Tags = append(save.Metadata.Tags, tag)
			}
		}
	}

	item, err := s.svc.Save(ctx, save)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", item.ID)), nil
}

func (s *Server) getItemContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ItemFormatContract), nil
}

func (s *Server) readItemFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://item-format",
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}

func (s *Server) getChain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	wf, err := s.svc.GetChain(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chain not found: %s", name)), nil
	}
	return jsonResult(wf), nil
}

func (s *Server) listChains(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chains, err := s.svc.AllChains(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(chains) == 0 {
		return mcp.NewToolResultText("no chains indexed"), nil
	}
	var lines []string
	for _, wf := range chains {
		lines = append(lines, fmt.Sprintf("%s (%d steps): %s", wf.ID, len(wf.Steps), wf.Description))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// sessionView is a compact tool payload: session state plus the rendered
// current step and a human-readable progress line.
type sessionView struct {
	Session  *models.Session `json:"session"`
	Step     *models.Step    `json:"step"`
	Progress string          `json:"progress"`
}

func (s *Server) sessionResult(id string) (*mcp.CallToolResult, error) {
	step, sess, progress, err := s.svc.SessionStep(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	return jsonResult(sessionView{Session: sess, Step: step, Progress: progress}), nil
}

func (s *Server) startChain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chain, err := req.RequireString("chain")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sessCtx map[string]string
	if raw := req.GetString("context", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sessCtx); err != nil {
			return mcp.NewToolResultError("context must be a JSON object of string values"), nil
		}
	}

	sess, err := s.svc.StartSession(ctx, chain, sessCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chain not found: %s", chain)), nil
	}
	return s.sessionResult(sess.ID)
}

func (s *Server) advanceChain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Advance(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	return s.sessionResult(id)
}

func (s *Server) jumpChain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	step, err := req.RequireInt("step")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.JumpTo(id, step); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	return s.sessionResult(id)
}

func (s *Server) chainStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.sessionResult(id)
}

func (s *Server) endChain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.EndSession(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("ended: %s", id)), nil
}
