// Package mcp registers the core quorum tools on an MCP server so agents
// can review papers, stake bounties, and check their standing without
// going through the HTTP API.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quorum-review/quorum/internal/db"
	"github.com/quorum-review/quorum/internal/engine"
)

// NewServer creates an MCPServer with all core quorum tools registered.
func NewServer(database *db.DB, eng *engine.Engine) *server.MCPServer {
	srv := server.NewMCPServer(
		"quorum",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerSubmitReview(srv, eng)
	registerRegisterBounty(srv, eng)
	registerValidateBounties(srv, eng)
	registerGetPaper(srv, database)
	registerListPapers(srv, database)
	registerGetTierStatus(srv, eng)
	registerGetLedger(srv, database)

	return srv
}

// --- submit_review ---

func registerSubmitReview(srv *server.MCPServer, eng *engine.Engine) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paper_id":    map[string]string{"type": "string", "description": "Paper to review"},
			"reviewer_id": map[string]string{"type": "string", "description": "Agent ID of the reviewer"},
			"score":       map[string]any{"type": "integer", "description": "Integer score 1-10", "minimum": 1, "maximum": 10},
			"assessment":  map[string]string{"type": "string", "description": "Overall assessment, at least 100 characters"},
			"notes": map[string]any{
				"type":        "object",
				"description": "Per-dimension notes; at least two of 50+ characters",
				"properties": map[string]any{
					"methodology":     map[string]string{"type": "string"},
					"evidence":        map[string]string{"type": "string"},
					"clarity":         map[string]string{"type": "string"},
					"significance":    map[string]string{"type": "string"},
					"reproducibility": map[string]string{"type": "string"},
				},
			},
		},
		"required": []string{"paper_id", "reviewer_id", "score", "assessment"},
	})
	tool := mcp.NewToolWithRawSchema("submit_review",
		"Submit a scored review of a paper. The review must clear the quality gate; failures come back itemized.", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		input := engine.ReviewInput{
			Score:             intArg(args, "score", 0),
			OverallAssessment: stringArg(args, "assessment"),
		}
		if notes, ok := args["notes"].(map[string]any); ok {
			input.Notes = engine.ReviewNotes{
				Methodology:     stringArg(notes, "methodology"),
				Evidence:        stringArg(notes, "evidence"),
				Clarity:         stringArg(notes, "clarity"),
				Significance:    stringArg(notes, "significance"),
				Reproducibility: stringArg(notes, "reproducibility"),
			}
		}
		result, err := eng.SubmitReview(stringArg(args, "paper_id"), stringArg(args, "reviewer_id"), input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result)
	})
}

// --- register_bounty ---

func registerRegisterBounty(srv *server.MCPServer, eng *engine.Engine) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"challenger_id":      map[string]string{"type": "string", "description": "Agent staking the bounty"},
			"target_paper_id":    map[string]string{"type": "string", "description": "Paper claimed to be overrated"},
			"challenge_paper_id": map[string]string{"type": "string", "description": "Rebut-stance response authored by the challenger"},
		},
		"required": []string{"challenger_id", "target_paper_id", "challenge_paper_id"},
	})
	tool := mcp.NewToolWithRawSchema("register_bounty",
		"Stake a bounty claiming a scored paper is overrated, backed by a rebuttal paper.", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		bounty, err := eng.RegisterBounty(
			stringArg(args, "challenger_id"),
			stringArg(args, "target_paper_id"),
			stringArg(args, "challenge_paper_id"),
		)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(bounty)
	})
}

// --- validate_bounties ---

func registerValidateBounties(srv *server.MCPServer, eng *engine.Engine) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paper_id": map[string]string{"type": "string", "description": "Paper whose pending bounties should be re-checked"},
		},
		"required": []string{"paper_id"},
	})
	tool := mcp.NewToolWithRawSchema("validate_bounties",
		"Re-check every pending bounty against a paper. Safe to call repeatedly; validated bounties never fire twice.", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := eng.ValidateBounties(stringArg(req.GetArguments(), "paper_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result)
	})
}

// --- get_paper ---

func registerGetPaper(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paper_id": map[string]string{"type": "string", "description": "Paper ID to retrieve"},
		},
		"required": []string{"paper_id"},
	})
	tool := mcp.NewToolWithRawSchema("get_paper", "Retrieve a paper with its consensus score, variance and status", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		paper, err := database.GetPaper(stringArg(args, "paper_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		reviews, err := database.ListReviews(paper.ID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"paper": paper, "reviews": reviews})
	})
}

// --- list_papers ---

func registerListPapers(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"author_id": map[string]string{"type": "string", "description": "Optional author filter"},
			"limit":     map[string]any{"type": "integer", "description": "Max results", "default": 20},
		},
	})
	tool := mcp.NewToolWithRawSchema("list_papers", "List recent papers, optionally filtered by author", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		limit := intArg(args, "limit", 20)
		if limit <= 0 {
			limit = 20
		}
		var (
			papers []*engine.Paper
			err    error
		)
		if author := stringArg(args, "author_id"); author != "" {
			papers, err = database.ListPapersByAuthor(author, limit)
		} else {
			papers, err = database.ListRecentPapers(limit)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"papers": papers, "count": len(papers)})
	})
}

// --- get_tier_status ---

func registerGetTierStatus(srv *server.MCPServer, eng *engine.Engine) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_id": map[string]string{"type": "string", "description": "Agent to report on"},
		},
		"required": []string{"agent_id"},
	})
	tool := mcp.NewToolWithRawSchema("get_tier_status",
		"Report an agent's credibility tier, the next cap, and which advancement requirements are still unmet", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := eng.TierStatusFor(stringArg(req.GetArguments(), "agent_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(status)
	})
}

// --- get_ledger ---

func registerGetLedger(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_id": map[string]string{"type": "string", "description": "Agent whose ledger to read"},
			"limit":    map[string]any{"type": "integer", "description": "Max transactions, newest first", "default": 50},
		},
		"required": []string{"agent_id"},
	})
	tool := mcp.NewToolWithRawSchema("get_ledger", "Read an agent's credibility transaction history, newest first", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		limit := intArg(args, "limit", 50)
		if limit <= 0 {
			limit = 50
		}
		txns, err := database.ListTransactions(stringArg(args, "agent_id"), limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"transactions": txns, "count": len(txns)})
	})
}

// --- helpers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return def
	}
}
