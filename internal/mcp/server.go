package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/hcm/internal/campaign"
	"github.com/joescharf/hcm/internal/git"
	"github.com/joescharf/hcm/internal/models"
	"github.com/joescharf/hcm/internal/store"
)

// Server wraps campaign history and checks and exposes them as MCP tools.
// Every tool is read-only: nothing here clones, branches or opens anything.
type Server struct {
	store    store.Store
	git      git.Client
	settings campaign.Settings
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(s store.Store, gc git.Client, settings campaign.Settings) *Server {
	return &Server{
		store:    s,
		git:      gc,
		settings: settings,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("hcm", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listCampaignsTool())
	srv.AddTool(s.showCampaignTool())
	srv.AddTool(s.planCampaignTool())
	srv.AddTool(s.checkCampaignTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type campaignOut struct {
	ID          string `json:"id"`
	Client      string `json:"client"`
	JobID       string `json:"jobid"`
	Branch      string `json:"branch"`
	Directory   string `json:"directory"`
	RepoURL     string `json:"repo_url"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toCampaignOut(c *models.Campaign) campaignOut {
	out := campaignOut{
		ID:        c.ID,
		Client:    c.Client,
		JobID:     c.JobID,
		Branch:    c.Branch,
		Directory: c.Directory,
		RepoURL:   c.RepoURL,
		Status:    string(c.Status),
		StartedAt: c.StartedAt.Format(time.RFC3339),
	}
	if c.CompletedAt != nil {
		out.CompletedAt = c.CompletedAt.Format(time.RFC3339)
	}
	return out
}

type checkOut struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// hcm_list_campaigns
func (s *Server) listCampaignsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hcm_list_campaigns",
		mcp.WithDescription("List recorded campaigns, newest first. Returns a JSON array with id, client, jobid, branch, directory, repo_url, status and timestamps."),
		mcp.WithString("client", mcp.Description("Filter by client name")),
		mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum("started", "completed")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of campaigns to return")),
	)
	return tool, s.handleListCampaigns
}

func (s *Server) handleListCampaigns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.CampaignListFilter{
		Client: request.GetString("client", ""),
		Status: models.CampaignStatus(request.GetString("status", "")),
		Limit:  request.GetInt("limit", 0),
	}

	campaigns, err := s.store.ListCampaigns(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list campaigns: %v", err)), nil
	}

	out := make([]campaignOut, len(campaigns))
	for i, c := range campaigns {
		out[i] = toCampaignOut(c)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal campaigns: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// hcm_show_campaign
func (s *Server) showCampaignTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hcm_show_campaign",
		mcp.WithDescription("Show one recorded campaign by ID or unique ID prefix, with the current checks of its checkout when the directory still exists."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Campaign ID or ID prefix")),
	)
	return tool, s.handleShowCampaign
}

func (s *Server) handleShowCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("campaign not found: %s", id)), nil
	}

	result := map[string]any{"campaign": toCampaignOut(c)}
	if info, err := os.Stat(c.Directory); err == nil && info.IsDir() {
		m := &campaign.Manager{Settings: s.settings, Git: s.git}
		result["checks"] = toCheckOut(m.Checks(c.Directory))
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal campaign: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// hcm_plan_campaign
func (s *Server) planCampaignTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hcm_plan_campaign",
		mcp.WithDescription("Derive the names a campaign would use (repository, clone URL, branch, pull request URL) without touching anything. The directory suffix is random per start."),
		mcp.WithString("client", mcp.Required(), mcp.Description("Client name")),
		mcp.WithString("jobid", mcp.Required(), mcp.Description("Job ID")),
	)
	return tool, s.handlePlanCampaign
}

func (s *Server) handlePlanCampaign(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := request.RequireString("client")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: client"), nil
	}
	jobid, err := request.RequireString("jobid")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: jobid"), nil
	}
	if err := campaign.ValidateIdentifier("client", client); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := campaign.ValidateIdentifier("job ID", jobid); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := campaign.NewConfig(s.settings, client, jobid)
	result := map[string]any{
		"client":           cfg.Client,
		"jobid":            cfg.JobID,
		"name":             cfg.Name,
		"url":              cfg.URL,
		"branch":           cfg.Branch,
		"directory":        cfg.Directory,
		"jobdir":           cfg.JobDir,
		"pull_request_url": cfg.PullRequestURL,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal plan: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// hcm_check_campaign
func (s *Server) checkCampaignTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hcm_check_campaign",
		mcp.WithDescription("Run the completion checks (project spec, repository, clean tree, branch, remote, job directory) against a campaign checkout. Returns ready=true when complete would succeed."),
		mcp.WithString("directory", mcp.Required(), mcp.Description("Absolute path of the campaign checkout")),
	)
	return tool, s.handleCheckCampaign
}

func (s *Server) handleCheckCampaign(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := request.RequireString("directory")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: directory"), nil
	}

	m := &campaign.Manager{Settings: s.settings, Git: s.git}
	checks := m.Checks(dir)

	data, err := json.Marshal(map[string]any{
		"directory": dir,
		"ready":     campaign.Ready(checks),
		"checks":    toCheckOut(checks),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal checks: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func toCheckOut(checks []campaign.Check) []checkOut {
	out := make([]checkOut, len(checks))
	for i, c := range checks {
		out[i] = checkOut{Name: c.Name, Passed: c.Passed, Detail: c.Detail}
	}
	return out
}
