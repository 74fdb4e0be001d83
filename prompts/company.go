package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func RegisterCompanyGraphPrompts(s *server.MCPServer) {
	prompt := mcp.NewPrompt("analyze_company_graph",
		mcp.WithPromptDescription("Explore how a company relates to others reported on the same dates"),
		mcp.WithArgument("company", mcp.RequiredArgument(), mcp.ArgumentDescription("The company to analyze")),
		mcp.WithArgument("depth", mcp.ArgumentDescription("How many hops to explore, default 2")),
	)
	s.AddPrompt(prompt, analyzeCompanyHandler)
}

func analyzeCompanyHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	company := request.Params.Arguments["company"]
	if company == "" {
		return nil, fmt.Errorf("company is required")
	}
	depth := request.Params.Arguments["depth"]
	if depth == "" {
		depth = "2"
	}

	return mcp.NewGetPromptResult(
		fmt.Sprintf("Company graph analysis for %s", company),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(fmt.Sprintf(
				"Use build_company_graph to build the graph if it has not been built, then use related_companies "+
					"with company %q and depth %s. Summarize which companies share reporting dates with %s, "+
					"how closely they are connected, and whether %s sits in a large connected group.",
				company, depth, company, company,
			))),
		},
	), nil
}
