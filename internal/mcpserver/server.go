// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only city page tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/naming"
	"github.com/starford/citypages/internal/pagegen"
	"github.com/starford/citypages/internal/provision"
	"github.com/starford/citypages/internal/slug"
)

const pageFormatURI = "citypages://page-format"

// Server wraps the MCP server with city page tools.
type Server struct {
	mcp *server.MCPServer
	svc *provision.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *provision.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"citypages",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	categoryArg := mcp.WithString("category",
		mcp.Required(),
		mcp.Enum("bike", "taxi", "tour"),
		mcp.Description("City category"),
	)

	s.mcp.AddTool(mcp.NewTool("list_cities",
		mcp.WithDescription("List the cities of a category, newest first."),
		categoryArg,
		mcp.WithBoolean("include_inactive", mcp.Description("Include deactivated cities")),
	), s.listCities)

	s.mcp.AddTool(mcp.NewTool("get_city",
		mcp.WithDescription("Look up one city by full slug, bare name segment or name. "+
			"Deactivated cities are included."),
		categoryArg,
		mcp.WithString("slug", mcp.Required(), mcp.Description("e.g. taxi-service-in-pune, pune")),
	), s.getCity)

	s.mcp.AddTool(mcp.NewTool("city_routes",
		mcp.WithDescription("Route entries the frontend registers for the active cities of a category."),
		categoryArg,
	), s.cityRoutes)

	s.mcp.AddTool(mcp.NewTool("preview_page",
		mcp.WithDescription("Show the slug, file path and page source a city name would produce. "+
			"Nothing is written. Read "+pageFormatURI+" for the naming rules."),
		categoryArg,
		mcp.WithString("name", mcp.Required(), mcp.Description("City name as an admin would enter it")),
	), s.previewPage)

	s.mcp.AddResource(
		mcp.NewResource(pageFormatURI, "City Page Format",
			mcp.WithResourceDescription("How city names map to slugs, files and generated pages."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
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

func requireCategory(req mcp.CallToolRequest) (category.Category, error) {
	raw, err := req.RequireString("category")
	if err != nil {
		return category.Category{}, err
	}
	return category.Parse(raw)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listCities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list := s.svc.ListActive
	if req.GetBool("include_inactive", false) {
		list = s.svc.ListAll
	}
	cities, err := list(ctx, cat)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cities), nil
}

func (s *Server) getCity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sl, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetAdmin(ctx, cat, sl)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c), nil
}

func (s *Server) cityRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.Routes(ctx, cat)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries), nil
}

type preview struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	ShortSlug string `json:"shortSlug"`
	PagePath  string `json:"pagePath"`
	Source    string `json:"source"`
}

func (s *Server) previewPage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name, err := naming.Normalize(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	full, err := slug.Full(name, cat)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := pagegen.RelPath(name, cat)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	src, err := pagegen.Render(name, cat, full)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render: %v", err)), nil
	}
	return jsonResult(preview{
		Name:      name,
		Slug:      full,
		ShortSlug: slug.Short(name),
		PagePath:  rel,
		Source:    string(src),
	}), nil
}

func (s *Server) readPageFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      pageFormatURI,
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
