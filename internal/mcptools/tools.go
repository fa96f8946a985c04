// Package mcptools exposes the translation pipeline as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/nl2sql/hybrid"
	"github.com/uniquery/uniquery/internal/nl2sql/sqlcheck"
	"github.com/uniquery/uniquery/internal/pipeline"
	"github.com/uniquery/uniquery/internal/query"
	"github.com/uniquery/uniquery/internal/schema"
)

const defaultRowLimit = 100

type Pipeline interface {
	Schema() schema.Description
	Translate(ctx context.Context, text string, language nl2sql.Language) (hybrid.Translation, error)
	Ask(ctx context.Context, text string, language nl2sql.Language, rowLimit int) (pipeline.Answer, error)
	Execute(ctx context.Context, sqlText string, rowLimit int) (query.Result, error)
}

func Register(s *server.MCPServer, p Pipeline) {
	questionParams := []mcp.ToolOption{
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question about the university database, in Portuguese or English"),
		),
		mcp.WithString("language",
			mcp.Description("Question language: pt or en (detected when omitted)"),
			mcp.Enum("pt", "en"),
		),
	}

	translateTool := mcp.NewTool("translate_question", append([]mcp.ToolOption{
		mcp.WithDescription("Translate a natural-language question into a validated SQL SELECT statement without running it"),
	}, questionParams...)...)

	askTool := mcp.NewTool("ask_question", append([]mcp.ToolOption{
		mcp.WithDescription("Translate a question into SQL, run it read-only and return the rows"),
		mcp.WithNumber("row_limit",
			mcp.Description("Maximum rows to return (default: 100)"),
		),
	}, questionParams...)...)

	queryTool := mcp.NewTool("run_sql",
		mcp.WithDescription("Validate a SQL SELECT statement against the schema and run it read-only"),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("A single SELECT statement over the known tables"),
		),
		mcp.WithNumber("row_limit",
			mcp.Description("Maximum rows to return (default: 100)"),
		),
	)

	schemaTool := mcp.NewTool("describe_schema",
		mcp.WithDescription("List the tables, columns and relationships the translator knows about"),
	)

	s.AddTool(translateTool, TranslateHandler(p))
	s.AddTool(askTool, AskHandler(p))
	s.AddTool(queryTool, QueryHandler(p))
	s.AddTool(schemaTool, SchemaHandler(p))
}

func TranslateHandler(p Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, language, errResult := questionArgs(request)
		if errResult != nil {
			return errResult, nil
		}
		translation, err := p.Translate(ctx, question, language)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Translation failed: %v", err)), nil
		}
		return jsonResult(translation)
	}
}

func AskHandler(p Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, language, errResult := questionArgs(request)
		if errResult != nil {
			return errResult, nil
		}
		answer, err := p.Ask(ctx, question, language, rowLimitArg(request))
		if err != nil {
			if execErr, ok := query.AsExecutionError(err); ok {
				return mcp.NewToolResultError(fmt.Sprintf("%v\nSQL: %s", execErr, answer.Translation.SQL)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Ask failed: %v", err)), nil
		}
		return jsonResult(answer)
	}
}

func QueryHandler(p Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlText, err := request.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing sql parameter: %v", err)), nil
		}
		result, err := p.Execute(ctx, sqlText, rowLimitArg(request))
		if err != nil {
			var rejected *sqlcheck.RejectedError
			if errors.As(err, &rejected) {
				return mcp.NewToolResultError(fmt.Sprintf("SQL rejected: %v", rejected)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
		}
		return jsonResult(result)
	}
}

func SchemaHandler(p Pipeline) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(p.Schema().Linearize()), nil
	}
}

func questionArgs(request mcp.CallToolRequest) (string, nl2sql.Language, *mcp.CallToolResult) {
	question, err := request.RequireString("question")
	if err != nil {
		return "", "", mcp.NewToolResultError(fmt.Sprintf("Missing question parameter: %v", err))
	}
	language, err := nl2sql.ParseLanguage(request.GetString("language", ""))
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return question, language, nil
}

func rowLimitArg(request mcp.CallToolRequest) int {
	limit := int(request.GetFloat("row_limit", defaultRowLimit))
	if limit <= 0 {
		return defaultRowLimit
	}
	return limit
}

func jsonResult(value any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
