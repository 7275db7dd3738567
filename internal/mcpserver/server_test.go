package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	_, store := testutil.TestTree(t, map[string]string{
		"index.md":      "[Guide](guide.md)\n",
		"guide.md":      "## Setup\ninstall the binary\n",
		"glossary.md":   "- API: REST interface\n",
		"specs/auth.md": "---\nspecId: AUTH-001\ntitle: Login flow\nstatus: approved\nversion: 1.0.0\n---\nbody\n",
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager, err := index.NewManager(store, index.Config{
		SpecsDir:     "specs",
		GlossaryPath: "glossary.md",
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	svc := docservice.NewService(store, manager, linkgraph.New(store, "", logger))
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := srv.CallTool(context.Background(), name, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// decodeEnvelope parses a tool result into its envelope form.
func decodeEnvelope(t *testing.T, r *mcp.CallToolResult) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(resultText(r)), &env); err != nil {
		t.Fatalf("result is not an envelope: %v\n%s", err, resultText(r))
	}
	return env
}

func TestSearchTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "search", map[string]any{"query": "setup"})
	env := decodeEnvelope(t, r)
	if !env.OK || env.Tool != "search" {
		t.Fatalf("envelope = %+v", env)
	}
	results, ok := env.Data.([]any)
	if !ok || len(results) == 0 {
		t.Fatalf("data = %#v", env.Data)
	}
}

func TestSearchToolInvalidArgs(t *testing.T) {
	srv := testServer(t)

	for name, args := range map[string]map[string]any{
		"missing query": {},
		"empty query":   {"query": "   "},
		"limit too low": {"query": "x", "limit": 0.0},
		"limit too big": {"query": "x", "limit": 21.0},
	} {
		r := callTool(t, srv, "search", args)
		if !r.IsError {
			t.Errorf("%s: expected error result", name)
			continue
		}
		env := decodeEnvelope(t, r)
		if env.OK || env.Error != CodeInvalidArgs {
			t.Errorf("%s: envelope = %+v", name, env)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	srv := testServer(t)
	req := mcp.CallToolRequest{}
	req.Params.Name = "no_such_tool"

	r, err := srv.CallTool(context.Background(), "no_such_tool", req)
	if err != nil {
		t.Fatal(err)
	}
	env := decodeEnvelope(t, r)
	if env.OK || env.Error != CodeUnknownTool {
		t.Errorf("envelope = %+v", env)
	}
}

func TestExtractSectionTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "extract_section", map[string]any{"file": "guide.md", "heading": "Setup"})
	env := decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("envelope = %+v", env)
	}

	r = callTool(t, srv, "extract_section", map[string]any{"file": "guide.md", "heading": "Nope"})
	env = decodeEnvelope(t, r)
	if env.OK || env.Error != CodeNotFound {
		t.Errorf("missing section envelope = %+v", env)
	}
}

func TestGlossaryLookupTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "glossary_lookup", map[string]any{"term": "api"})
	env := decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("envelope = %+v", env)
	}
	data := env.Data.(map[string]any)
	if data["term"] != "API" || data["definition"] != "REST interface" {
		t.Errorf("data = %v", data)
	}
}

func TestSpecTools(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "spec_lookup", map[string]any{"specId": "auth-001"})
	env := decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("lookup envelope = %+v", env)
	}

	r = callTool(t, srv, "spec_lookup", map[string]any{"specId": "ZZZ-9"})
	env = decodeEnvelope(t, r)
	if env.OK || env.Error != CodeNotFound {
		t.Errorf("missing spec envelope = %+v", env)
	}

	r = callTool(t, srv, "spec_search", map[string]any{"query": "login"})
	env = decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("search envelope = %+v", env)
	}
}

func TestBacklinksTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "backlinks", map[string]any{"file": "guide.md"})
	env := decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("envelope = %+v", env)
	}
	data := env.Data.(map[string]any)
	if data["backlinksCount"].(float64) != 1 {
		t.Errorf("data = %v", data)
	}

	r = callTool(t, srv, "backlinks", map[string]any{"file": "missing.md"})
	env = decodeEnvelope(t, r)
	if env.OK || env.Error != CodeFileNotFound {
		t.Errorf("missing file envelope = %+v", env)
	}
}

func TestValidateAndOrphanTools(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "validate_links", nil)
	env := decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("validate envelope = %+v", env)
	}
	summary := env.Data.(map[string]any)["summary"].(map[string]any)
	if summary["brokenLinks"].(float64) != 0 {
		t.Errorf("summary = %v", summary)
	}

	r = callTool(t, srv, "orphaned_files", nil)
	env = decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("orphans envelope = %+v", env)
	}
	files := env.Data.(map[string]any)["files"].([]any)
	if len(files) == 0 {
		t.Fatal("expected at least one orphan")
	}
	entry := files[0].(map[string]any)
	if entry["file"] != "glossary.md" {
		t.Errorf("first orphan = %v", entry)
	}
	if abs, _ := entry["absolutePath"].(string); abs == "" || abs == entry["file"] {
		t.Errorf("absolutePath = %v", entry["absolutePath"])
	}
}

func TestUpdateBacklinksToolIdempotent(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "update_backlinks", nil)
	env := decodeEnvelope(t, r)
	if !env.OK {
		t.Fatalf("envelope = %+v", env)
	}

	r = callTool(t, srv, "update_backlinks", nil)
	env = decodeEnvelope(t, r)
	data := env.Data.(map[string]any)
	if data["updated"].(float64) != 0 {
		t.Errorf("second pass data = %v", data)
	}
}

func TestPanicRecovery(t *testing.T) {
	srv := testServer(t)
	boom := withRecovery(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("kaboom")
	})
	srv.tools["boom"] = boom

	r := callTool(t, srv, "boom", nil)
	env := decodeEnvelope(t, r)
	if env.OK || env.Error != CodeExecutionFailed {
		t.Errorf("envelope = %+v", env)
	}
}
