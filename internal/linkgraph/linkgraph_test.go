package linkgraph

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/testutil"
)

func newEngine(t *testing.T, files map[string]string) (*Engine, string, storage.Provider) {
	t.Helper()
	root, store := testutil.TestTree(t, files)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, "", logger), root, store
}

func TestExtractLinks(t *testing.T) {
	content := strings.Join([]string{
		"See [Guide](guide.md) and [Deep](sub/deep.md#setup).",
		"External: [site](https://example.com/page.md) is skipped.",
		"Non-doc: [img](diagram.png) is skipped.",
		"",
		SectionMarker,
		"",
		"- [old](old.md)",
	}, "\n")

	links := ExtractLinks("/docs/index.md", content)
	if len(links) != 2 {
		t.Fatalf("links = %+v, want 2", links)
	}
	if links[0].TargetPath != filepath.Clean("/docs/guide.md") || links[0].LinkText != "Guide" {
		t.Errorf("link 0 = %+v", links[0])
	}
	if links[1].TargetPath != filepath.Clean("/docs/sub/deep.md") || links[1].Anchor != "setup" {
		t.Errorf("link 1 = %+v", links[1])
	}
}

func TestExtractLinks_ResolvesAgainstSourceDir(t *testing.T) {
	links := ExtractLinks("/docs/sub/page.md", "[up](../guide.md)")
	if len(links) != 1 || links[0].TargetPath != filepath.Clean("/docs/guide.md") {
		t.Fatalf("links = %+v", links)
	}
}

func TestBuildBacklinksMap(t *testing.T) {
	e, _, store := newEngine(t, map[string]string{
		"index.md": "[Guide](guide.md)\n[Guide again](guide.md#setup)\n",
		"guide.md": "## Setup\nsteps\n",
	})

	m, err := e.BuildBacklinksMap()
	if err != nil {
		t.Fatal(err)
	}
	target, err := store.Abs("guide.md")
	if err != nil {
		t.Fatal(err)
	}
	bucket := m[target]
	if len(bucket) != 2 {
		t.Fatalf("bucket = %+v, want 2 entries", bucket)
	}
	if bucket[1].Anchor != "setup" {
		t.Errorf("anchor = %q", bucket[1].Anchor)
	}
}

func TestUpdateAll_AppendsAndIsIdempotent(t *testing.T) {
	e, root, _ := newEngine(t, map[string]string{
		"index.md": "[Guide](guide.md)\n",
		"guide.md": "## Setup\nsteps\n",
	})

	res, err := e.UpdateAll(false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.Updated != 2 {
		t.Errorf("updated = %d, want both files on first pass", res.Updated)
	}

	guide := testutil.ReadDoc(t, root, "guide.md")
	if !strings.Contains(guide, SectionMarker) {
		t.Fatalf("guide.md missing section:\n%s", guide)
	}
	if !strings.Contains(guide, "- [index](index.md)") {
		t.Errorf("guide.md backlink entry wrong:\n%s", guide)
	}
	index := testutil.ReadDoc(t, root, "index.md")
	if !strings.Contains(index, "_(no incoming links yet)_") {
		t.Errorf("index.md must get the empty placeholder:\n%s", index)
	}

	// Second pass over the unchanged tree writes nothing.
	res, err = e.UpdateAll(false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 {
		t.Errorf("second pass updated = %d, want 0", res.Updated)
	}
}

func TestUpdateAll_ReplacesExistingSection(t *testing.T) {
	e, root, _ := newEngine(t, map[string]string{
		"index.md": "[Guide](guide.md)\n",
		"guide.md": "## Setup\nsteps\n\n" + SectionMarker + "\n\n- [stale](stale.md)\n",
	})

	if _, err := e.UpdateAll(false); err != nil {
		t.Fatal(err)
	}
	guide := testutil.ReadDoc(t, root, "guide.md")
	if strings.Contains(guide, "stale.md") {
		t.Errorf("stale section survived:\n%s", guide)
	}
	if strings.Count(guide, SectionMarker) != 1 {
		t.Errorf("marker must appear exactly once:\n%s", guide)
	}
}

func TestUpdateAll_DryRunWritesNothing(t *testing.T) {
	e, root, _ := newEngine(t, map[string]string{
		"index.md": "[Guide](guide.md)\n",
		"guide.md": "## Setup\nsteps\n",
	})

	res, err := e.UpdateAll(true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 2 {
		t.Errorf("dry run should report both files stale, got %d", res.Updated)
	}
	if got := testutil.ReadDoc(t, root, "guide.md"); strings.Contains(got, SectionMarker) {
		t.Errorf("dry run wrote a section:\n%s", got)
	}
}

func TestBacklinkSectionSortedByBasename(t *testing.T) {
	e, root, _ := newEngine(t, map[string]string{
		"zeta.md":   "[t](target.md)\n",
		"alpha.md":  "[t](target.md)\n",
		"target.md": "content\n",
	})

	if _, err := e.UpdateAll(false); err != nil {
		t.Fatal(err)
	}
	target := testutil.ReadDoc(t, root, "target.md")
	alphaAt := strings.Index(target, "alpha.md")
	zetaAt := strings.Index(target, "zeta.md")
	if alphaAt == -1 || zetaAt == -1 || alphaAt > zetaAt {
		t.Errorf("entries not basename-sorted:\n%s", target)
	}
}

func TestValidateLinks(t *testing.T) {
	e, _, _ := newEngine(t, map[string]string{
		"index.md": strings.Join([]string{
			"[ok](guide.md)",
			"[ok anchor](guide.md#setup)",
			"[gone](missing.md)",
			"[bad anchor](guide.md#nope)",
			"[ext](https://example.com)",
		}, "\n"),
		"guide.md": "## Setup\nsteps\n",
	})

	report, err := e.ValidateLinks()
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalFiles != 2 {
		t.Errorf("totalFiles = %d", report.TotalFiles)
	}
	// External link excluded from the count.
	if report.TotalLinks != 4 {
		t.Errorf("totalLinks = %d, want 4", report.TotalLinks)
	}
	if report.BrokenLinks != 2 || len(report.Errors) != 2 {
		t.Fatalf("errors = %+v", report.Errors)
	}
	if report.Errors[0].ErrorType != ErrTypeFileNotFound || report.Errors[0].LinkPath != "missing.md" {
		t.Errorf("error 0 = %+v", report.Errors[0])
	}
	if report.Errors[1].ErrorType != ErrTypeInvalidAnchor || report.Errors[1].LinkPath != "guide.md#nope" {
		t.Errorf("error 1 = %+v", report.Errors[1])
	}
}

func TestValidateLinks_NonDocTargetsChecked(t *testing.T) {
	e, _, _ := newEngine(t, map[string]string{
		"index.md": "[img](diagram.png)\n",
	})

	report, err := e.ValidateLinks()
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalLinks != 1 || report.BrokenLinks != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Errors[0].ErrorType != ErrTypeFileNotFound {
		t.Errorf("error = %+v", report.Errors[0])
	}
}

func TestOrphanedFiles(t *testing.T) {
	e, root, _ := newEngine(t, map[string]string{
		"index.md": "[Guide](guide.md)\n",
		"guide.md": "## Setup\nsteps\n",
		"lone.md":  "nobody links here\n",
	})

	orphans, err := e.OrphanedFiles()
	if err != nil {
		t.Fatal(err)
	}
	rels := make([]string, len(orphans))
	for i, o := range orphans {
		rels[i] = o.File
	}
	// index.md has no incoming link either; guide.md does.
	if len(rels) != 2 || rels[0] != "index.md" || rels[1] != "lone.md" {
		t.Fatalf("orphans = %v", rels)
	}

	// Linking to lone.md removes it from the next run.
	testutil.WriteDoc(t, root, "index.md", "[Guide](guide.md)\n[Lone](lone.md)\n")
	orphans, err = e.OrphanedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 || orphans[0].File != "index.md" {
		t.Fatalf("orphans after link = %+v", orphans)
	}
}

func TestEndToEndScenario(t *testing.T) {
	e, root, store := newEngine(t, map[string]string{
		"index.md": "[Guide](guide.md)\n",
		"guide.md": "## Setup\nsteps\n",
	})

	m, err := e.BuildBacklinksMap()
	if err != nil {
		t.Fatal(err)
	}
	guideAbs, err := store.Abs("guide.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(m[guideAbs]) != 1 || filepath.Base(m[guideAbs][0].FromFile) != "index.md" {
		t.Errorf("backlinks for guide.md = %+v", m[guideAbs])
	}

	report, err := e.ValidateLinks()
	if err != nil {
		t.Fatal(err)
	}
	if report.BrokenLinks != 0 {
		t.Errorf("report = %+v", report)
	}

	orphans, err := e.OrphanedFiles()
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range orphans {
		if o.File == "guide.md" {
			t.Error("guide.md is linked and must not be orphaned")
		}
	}
	found := false
	for _, o := range orphans {
		if o.File == "index.md" {
			found = true
		}
	}
	if !found {
		t.Error("index.md has no incoming links and must be orphaned")
	}
	_ = root
}
