package uniqueryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Language   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type call struct {
	method string
	path   string
	body   any
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("uniqueryctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "uniquery API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	language := fs.String("lang", defaults.Language, "question language (pt or en, empty to detect)")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")
	rowLimit := fs.Int("row-limit", 0, "maximum rows returned by ask and query (0 uses the server default)")
	limit := fs.Int("limit", 0, "number of history entries to list")
	sqlOnly := fs.Bool("sql-only", false, "print only the generated SQL for translate")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	var c call
	switch command {
	case "health":
		c = call{method: http.MethodGet, path: "/v1/health"}
	case "ready":
		c = call{method: http.MethodGet, path: "/v1/ready"}
	case "schema":
		c = call{method: http.MethodGet, path: "/v1/schema"}
	case "history":
		c = call{method: http.MethodGet, path: "/v1/history"}
		if rest != "" {
			c.path += "/" + url.PathEscape(rest)
		} else if *limit > 0 {
			c.path += "?limit=" + strconv.Itoa(*limit)
		}
	case "translate":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "translate requires a question")
			return 2
		}
		c = call{method: http.MethodPost, path: "/v1/translate", body: map[string]any{"question": rest, "language": *language}}
	case "ask":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		c = call{method: http.MethodPost, path: "/v1/ask", body: map[string]any{"question": rest, "language": *language, "row_limit": *rowLimit}}
	case "query":
		if rest == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a SQL statement")
			return 2
		}
		c = call{method: http.MethodPost, path: "/v1/query", body: map[string]any{"sql": rest, "row_limit": *rowLimit}}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + c.path
	code, responseBody, err := doRequest(ctx, client, c.method, endpoint, *apiKey, c.body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if command == "translate" && *sqlOnly {
		var translation struct {
			SQL string `json:"sql"`
		}
		if err := json.Unmarshal(responseBody, &translation); err != nil {
			_, _ = fmt.Fprintf(stderr, "decode response: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(stdout, translation.SQL)
		return 0
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: uniqueryctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health               GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema               GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  history [id]         GET /v1/history or /v1/history/{id}")
	_, _ = fmt.Fprintln(w, "  translate <question> POST /v1/translate")
	_, _ = fmt.Fprintln(w, "  ask <question>       POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  query <sql>          POST /v1/query")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
