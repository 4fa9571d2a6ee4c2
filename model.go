package docrag

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/docrag/embedding"
	"github.com/flarexio/docrag/llm"
	"github.com/flarexio/docrag/vector"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrFileNotFound   = errors.New("file not found")
	ErrEmptyQuery     = errors.New("query is empty")
	ErrEmptyPrompt    = errors.New("prompt is empty")
)

const (
	DefaultCollection   = "user_docs"
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 3

	// Per-hit text budget inside the prompt.
	ContextBudget = 1000

	// Length of the snippet returned with each source.
	SnippetLength = 400
)

type Config struct {
	Chunk          ChunkConfig      `yaml:"chunk"`
	TopK           int              `yaml:"topK"`
	RequestTimeout Duration         `yaml:"requestTimeout"`
	UploadDir      string           `yaml:"uploadDir"`
	IngestRoot     string           `yaml:"ingestRoot"`
	Embedding      embedding.Config `yaml:"embedding"`
	Vector         vector.Config    `yaml:"vector"`
	LLM            llm.Config       `yaml:"llm"`
}

type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// Chunk is one window of a document. Start and End are rune offsets into
// the source text.
type Chunk struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Index int    `json:"index"`
}

// Source is the caller-facing form of a hit. It never carries the full chunk
// text, only a short snippet.
type Source struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	FileID  string  `json:"file_id"`
	Index   int     `json:"index"`
	Snippet string  `json:"snippet"`
}

type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type IngestRequest struct {
	FileID     string `json:"file_id"`
	Path       string `json:"path"`
	Collection string `json:"collection,omitempty"`
}

type IngestResult struct {
	Ingested  bool `json:"ingested"`
	NumChunks int  `json:"num_chunks"`
}

type QueryRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	Collection string `json:"collection,omitempty"`
}

type SearchRequest = QueryRequest

type GenerateResponse struct {
	OK       bool   `json:"ok"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
