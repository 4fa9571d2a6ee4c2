package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/docrag"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `DocRAG answers questions from documents that were uploaded and ingested into a vector collection.

Available tools:
- search_documents: Find the passages closest to a question
- ask_documents: Answer a question from the closest passages, with cited sources
- ingest_document: Index a stored file so it can be searched

Passages are cited by their point id in square brackets.`

const (
	ToolSearchDocuments = "search_documents"
	ToolAskDocuments    = "ask_documents"
	ToolIngestDocument  = "ingest_document"
)

// Tools lists the tools served by CallToolEndpoint.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolSearchDocuments,
			mcp.WithDescription("Search ingested documents for the passages closest to a question"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural language question or keywords"),
			),
			mcp.WithNumber("top_k",
				mcp.Description("Number of passages to return"),
				mcp.DefaultNumber(docrag.DefaultTopK),
				mcp.Min(1),
			),
			mcp.WithString("collection",
				mcp.Description("Collection to search, the server default when empty"),
			),
		),
		mcp.NewTool(ToolAskDocuments,
			mcp.WithDescription("Answer a question from ingested documents and cite the passages used"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Question to answer"),
			),
			mcp.WithNumber("top_k",
				mcp.Description("Number of passages given to the model"),
				mcp.DefaultNumber(docrag.DefaultTopK),
				mcp.Min(1),
			),
			mcp.WithString("collection",
				mcp.Description("Collection to search, the server default when empty"),
			),
		),
		mcp.NewTool(ToolIngestDocument,
			mcp.WithDescription("Extract, chunk and index a file already stored on the server"),
			mcp.WithString("file_id",
				mcp.Required(),
				mcp.Description("Identifier recorded with every chunk of the file"),
			),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Path of the file on the server"),
			),
			mcp.WithString("collection",
				mcp.Description("Target collection, the server default when empty"),
			),
		),
	}
}

func InitializeEndpoint(svc docrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "docrag",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc docrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc docrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

// CallToolEndpoint runs one of the document tools. Service failures are
// reported as tool results with IsError set; protocol errors are reserved
// for malformed calls.
func CallToolEndpoint(svc docrag.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		callToolReq := mcp.CallToolRequest{
			Request: mcp.Request{
				Method: string(req.Method),
			},
			Params: params,
		}

		var result *mcp.CallToolResult
		switch params.Name {
		case ToolSearchDocuments:
			result = searchDocuments(ctx, svc, callToolReq)

		case ToolAskDocuments:
			result = askDocuments(ctx, svc, callToolReq)

		case ToolIngestDocument:
			result = ingestDocument(ctx, svc, callToolReq)

		default:
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, fmt.Sprintf("unknown tool: %s", params.Name))
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func queryRequest(req mcp.CallToolRequest) (docrag.QueryRequest, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return docrag.QueryRequest{}, err
	}

	return docrag.QueryRequest{
		Query:      query,
		TopK:       req.GetInt("top_k", 0),
		Collection: req.GetString("collection", ""),
	}, nil
}

func searchDocuments(ctx context.Context, svc docrag.Service, req mcp.CallToolRequest) *mcp.CallToolResult {
	query, err := queryRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	sources, err := svc.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("search failed", err)
	}

	if len(sources) == 0 {
		return mcp.NewToolResultText("No matching passages.")
	}

	return mcp.NewToolResultText(formatSources(sources))
}

func askDocuments(ctx context.Context, svc docrag.Service, req mcp.CallToolRequest) *mcp.CallToolResult {
	query, err := queryRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	answer, err := svc.Query(ctx, query)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("query failed", err)
	}

	var sb strings.Builder
	sb.WriteString(answer.Text)

	if len(answer.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		sb.WriteString(formatSources(answer.Sources))
	}

	return mcp.NewToolResultText(sb.String())
}

func ingestDocument(ctx context.Context, svc docrag.Service, req mcp.CallToolRequest) *mcp.CallToolResult {
	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}

	result, err := svc.Ingest(ctx, docrag.IngestRequest{
		FileID:     fileID,
		Path:       path,
		Collection: req.GetString("collection", ""),
	})
	if err != nil {
		return mcp.NewToolResultErrorFromErr("ingest failed", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Ingested %s: %d chunks", fileID, result.NumChunks))
}

func formatSources(sources []docrag.Source) string {
	var sb strings.Builder
	for i, s := range sources {
		if i > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "[%s] (score %.3f, file %s, chunk %d) %s", s.ID, s.Score, s.FileID, s.Index, s.Snippet)
	}

	return sb.String()
}
