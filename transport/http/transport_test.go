package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/docrag"
	"github.com/flarexio/docrag/embedding"
	"github.com/flarexio/docrag/llm"
	"github.com/flarexio/docrag/persistence/chromem"
	"github.com/flarexio/docrag/upload"
	"github.com/flarexio/docrag/vector"

	mcpE "github.com/flarexio/docrag/mcp"
)

type httpTestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *httpTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	backend, err := chromem.NewChromemBackend(vector.ChromemConfig{})
	if err != nil {
		suite.FailNow(err.Error())
	}

	model, err := embedding.NewHashingModel(0)
	if err != nil {
		suite.FailNow(err.Error())
	}

	generator, err := llm.NewClient(llm.Config{})
	if err != nil {
		suite.FailNow(err.Error())
	}

	cfg := docrag.DefaultConfig()

	svc, err := docrag.NewService(cfg,
		embedding.NewStaticProvider(model),
		vector.NewDB(backend, vector.MetricCosine),
		generator,
	)
	if err != nil {
		suite.FailNow(err.Error())
	}

	reg := prometheus.NewRegistry()
	svc = docrag.InstrumentingMiddleware(reg)(svc)

	endpoints := docrag.MakeEndpoints(svc)
	store := upload.NewStore(suite.T().TempDir())

	r := gin.New()
	AddRouters(r, endpoints, store)
	AddStreamableRouters(r, map[mcp.MCPMethod]mcpE.MCPEndpoint{
		mcp.MethodToolsList: mcpE.ListToolsEndpoint(svc),
		mcp.MethodToolsCall: mcpE.CallToolEndpoint(svc),
	})
	AddMetricsRouter(r, reg)

	suite.router = r
}

func (suite *httpTestSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			suite.FailNow(err.Error())
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *httpTestSuite) uploadFile(name, content string) UploadResponse {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		suite.FailNow(err.Error())
	}

	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		suite.FailNow(err.Error())
	}

	return resp
}

func (suite *httpTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status":"ok"}`, w.Body.String())
}

func (suite *httpTestSuite) TestUploadIngestQuery() {
	uploaded := suite.uploadFile("../guide.txt", "Press the red button to start the pump.")

	suite.NotEmpty(uploaded.FileID)
	suite.True(strings.HasSuffix(uploaded.Path, uploaded.FileID+"_guide.txt"))

	data, err := os.ReadFile(uploaded.Path)
	if suite.NoError(err) {
		suite.Equal("Press the red button to start the pump.", string(data))
	}

	w := suite.do(http.MethodPost, "/ingest", docrag.IngestRequest{
		FileID: uploaded.FileID,
		Path:   uploaded.Path,
	})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.JSONEq(`{"ingested":true,"num_chunks":1}`, w.Body.String())

	w = suite.do(http.MethodPost, "/query", map[string]any{
		"query": "How do I start the pump?",
		"top_k": 3,
	})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	var answer docrag.Answer
	if err := json.Unmarshal(w.Body.Bytes(), &answer); err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal(llm.Placeholder, answer.Text)
	if suite.Len(answer.Sources, 1) {
		suite.Equal(uploaded.FileID, answer.Sources[0].FileID)
	}

	w = suite.do(http.MethodPost, "/search", map[string]any{"query": "pump"})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Contains(w.Body.String(), `"sources":[`)

	w = suite.do(http.MethodGet, "/metrics", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `docrag_requests_total{action="ingest",status="ok"} 1`)
	suite.Contains(w.Body.String(), `docrag_ingested_chunks_total 1`)
}

func (suite *httpTestSuite) TestIngestMissingFile() {
	w := suite.do(http.MethodPost, "/ingest", docrag.IngestRequest{
		FileID: "nope",
		Path:   "/does/not/exist.txt",
	})

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), "file not found")
}

func (suite *httpTestSuite) TestQueryInvalid() {
	w := suite.do(http.MethodPost, "/query", map[string]any{"query": ""})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/query", map[string]any{"query": "q", "top_k": -2})
	suite.Equal(http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *httpTestSuite) TestQueryWithoutWordTokens() {
	uploaded := suite.uploadFile("hello.txt", "hello world document")

	w := suite.do(http.MethodPost, "/ingest", docrag.IngestRequest{
		FileID: uploaded.FileID,
		Path:   uploaded.Path,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.do(http.MethodPost, "/query", map[string]any{"query": "???"})
	suite.Equal(http.StatusOK, w.Code)

	var answer docrag.Answer
	if suite.NoError(json.Unmarshal(w.Body.Bytes(), &answer), w.Body.String()) {
		suite.Len(answer.Sources, 1)
	}

	w = suite.do(http.MethodPost, "/search", map[string]any{"query": "..."})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"sources":[`)
}

func (suite *httpTestSuite) TestCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://frontend.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
	suite.Contains(w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://frontend.local")

	w = httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}

func (suite *httpTestSuite) TestUploadWithoutFile() {
	w := suite.do(http.MethodPost, "/upload", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTestSuite) TestLLMTest() {
	w := suite.do(http.MethodPost, "/llm_test", map[string]any{"prompt": "Say hello"})
	suite.Equal(http.StatusOK, w.Code)

	var resp docrag.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		suite.FailNow(err.Error())
	}

	suite.True(resp.OK)
	suite.Equal(llm.Placeholder, resp.Response)

	w = suite.do(http.MethodPost, "/llm_test", map[string]any{"prompt": ""})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.JSONEq(`{"ok":false,"error":"prompt is empty"}`, w.Body.String())
}

func (suite *httpTestSuite) TestMCPStreamable() {
	w := suite.do(http.MethodPost, "/mcp/", map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"name":"search_documents"`)

	w = suite.do(http.MethodPost, "/mcp/", map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "resources/list",
	})
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), `"code":-32601`)

	w = suite.do(http.MethodPost, "/mcp/", map[string]any{
		"jsonrpc": "2.0",
		"method":  "notifications/initialized",
	})
	suite.Equal(http.StatusAccepted, w.Code)
}

func TestHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(httpTestSuite))
}
