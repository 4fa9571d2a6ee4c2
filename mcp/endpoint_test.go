package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docrag"
)

type stubService struct {
	docrag.Service

	query  docrag.QueryRequest
	ingest docrag.IngestRequest
	err    error
}

func (s *stubService) Search(ctx context.Context, req docrag.SearchRequest) ([]docrag.Source, error) {
	s.query = req
	if s.err != nil {
		return nil, s.err
	}

	return []docrag.Source{
		{ID: "p-1", Score: 0.75, FileID: "manual", Index: 4, Snippet: "Hold the button for five seconds."},
	}, nil
}

func (s *stubService) Query(ctx context.Context, req docrag.QueryRequest) (*docrag.Answer, error) {
	s.query = req
	if s.err != nil {
		return nil, s.err
	}

	return &docrag.Answer{
		Text: "Hold the button [p-1].",
		Sources: []docrag.Source{
			{ID: "p-1", Score: 0.75, FileID: "manual", Index: 4, Snippet: "Hold the button for five seconds."},
		},
	}, nil
}

func (s *stubService) Ingest(ctx context.Context, req docrag.IngestRequest) (*docrag.IngestResult, error) {
	s.ingest = req
	if s.err != nil {
		return nil, s.err
	}

	return &docrag.IngestResult{Ingested: true, NumChunks: 7}, nil
}

func decodeRequest(t *testing.T, input string) JSONRPCRequest {
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatal(err)
	}

	return req
}

func toolResult(t *testing.T, msg mcp.JSONRPCMessage) (string, bool) {
	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok || len(result.Content) == 0 {
		t.Fatalf("unexpected result %T", resp.Result)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", result.Content[0])
	}

	return text.Text, result.IsError
}

func TestUnmarshalInitializeRequest(t *testing.T) {
	assert := assert.New(t)

	input := []byte(`{
	  "jsonrpc": "2.0",
	  "id": 1,
	  "method": "initialize",
	  "params": {
	    "protocolVersion": "2024-11-05",
	    "capabilities": {
	      "roots": {
	        "listChanged": true
	      },
	      "sampling": {}
	    },
	    "clientInfo": {
	      "name": "ExampleClient",
	      "version": "1.0.0"
	    }
	  }
	}`)

	var req JSONRPCRequest
	if err := json.Unmarshal(input, &req); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(mcp.JSONRPC_VERSION, req.JSONRPC)
	assert.Equal(mcp.NewRequestId(int64(1)), req.ID)
	assert.Equal(mcp.MethodInitialize, req.Method)

	msg := InitializeEndpoint(nil)(context.Background(), req)

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !assert.True(ok) {
		return
	}

	result, ok := resp.Result.(*mcp.InitializeResult)
	if !assert.True(ok) {
		return
	}

	assert.Equal("2024-11-05", result.ProtocolVersion)
	assert.Equal("docrag", result.ServerInfo.Name)
	assert.NotNil(result.Capabilities.Tools)
}

func TestInitializeUnknownVersion(t *testing.T) {
	assert := assert.New(t)

	req := decodeRequest(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"1999-01-01"}}`)

	msg := InitializeEndpoint(nil)(context.Background(), req)

	resp := msg.(mcp.JSONRPCResponse)
	result := resp.Result.(*mcp.InitializeResult)
	assert.Equal(mcp.LATEST_PROTOCOL_VERSION, result.ProtocolVersion)
}

func TestListTools(t *testing.T) {
	assert := assert.New(t)

	req := decodeRequest(t, `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)

	msg := ListToolsEndpoint(nil)(context.Background(), req)

	resp := msg.(mcp.JSONRPCResponse)
	result := resp.Result.(*mcp.ListToolsResult)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}

	assert.Equal([]string{ToolSearchDocuments, ToolAskDocuments, ToolIngestDocument}, names)
	assert.Contains(result.Tools[0].InputSchema.Required, "query")
	assert.Contains(result.Tools[2].InputSchema.Required, "path")
}

func TestCallSearchDocuments(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{}
	req := decodeRequest(t, `{
	  "jsonrpc": "2.0",
	  "id": 2,
	  "method": "tools/call",
	  "params": {
	    "name": "search_documents",
	    "arguments": {
	      "query": "reset the device",
	      "top_k": 2,
	      "collection": "manuals"
	    }
	  }
	}`)

	text, isError := toolResult(t, CallToolEndpoint(svc)(context.Background(), req))

	assert.False(isError)
	assert.Equal("[p-1] (score 0.750, file manual, chunk 4) Hold the button for five seconds.", text)
	assert.Equal(docrag.QueryRequest{Query: "reset the device", TopK: 2, Collection: "manuals"}, svc.query)
}

func TestCallAskDocuments(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{}
	req := decodeRequest(t, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"ask_documents","arguments":{"query":"how to reset?"}}}`)

	text, isError := toolResult(t, CallToolEndpoint(svc)(context.Background(), req))

	assert.False(isError)
	assert.Contains(text, "Hold the button [p-1].\n\nSources:\n[p-1]")
	assert.Equal(0, svc.query.TopK)
}

func TestCallIngestDocument(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{}
	req := decodeRequest(t, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"ingest_document","arguments":{"file_id":"f1","path":"/data/f1.txt"}}}`)

	text, isError := toolResult(t, CallToolEndpoint(svc)(context.Background(), req))

	assert.False(isError)
	assert.Equal("Ingested f1: 7 chunks", text)
	assert.Equal("/data/f1.txt", svc.ingest.Path)
}

func TestCallToolErrors(t *testing.T) {
	assert := assert.New(t)

	svc := &stubService{err: errors.New("store down")}

	req := decodeRequest(t, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"ask_documents","arguments":{"query":"q"}}}`)
	text, isError := toolResult(t, CallToolEndpoint(svc)(context.Background(), req))
	assert.True(isError)
	assert.Equal("query failed: store down", text)

	req = decodeRequest(t, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"search_documents","arguments":{}}}`)
	text, isError = toolResult(t, CallToolEndpoint(svc)(context.Background(), req))
	assert.True(isError)
	assert.Contains(text, "query")

	req = decodeRequest(t, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"delete_everything"}}`)
	msg := CallToolEndpoint(svc)(context.Background(), req)

	errResp, ok := msg.(mcp.JSONRPCError)
	if assert.True(ok) {
		assert.Equal(mcp.INVALID_PARAMS, errResp.Error.Code)
		assert.Equal(mcp.NewRequestId(int64(7)), errResp.ID)
	}
}
