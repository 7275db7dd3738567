package linkgraph

import "sort"

// OrphanedFile is a document no other document links to.
type OrphanedFile struct {
	File         string `json:"file"` // relative to the docs root
	AbsolutePath string `json:"absolutePath"`
}

// OrphanedFiles returns every document whose path never appears as an
// internal .md link target, sorted by relative path. The definition is
// purely scan-based: a self-link keeps a file off the list, and links
// inside generated backlinks sections never count as references.
func (e *Engine) OrphanedFiles() ([]OrphanedFile, error) {
	files, err := e.walk()
	if err != nil {
		return nil, err
	}

	linked := make(map[string]struct{})
	for _, f := range files {
		data, err := e.store.Read(f.Rel)
		if err != nil {
			continue
		}
		for _, l := range ExtractLinks(f.Abs, string(data)) {
			linked[l.TargetPath] = struct{}{}
		}
	}

	orphans := []OrphanedFile{}
	for _, f := range files {
		if _, ok := linked[f.Abs]; ok {
			continue
		}
		orphans = append(orphans, OrphanedFile{File: f.Rel, AbsolutePath: f.Abs})
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].File < orphans[j].File
	})
	return orphans, nil
}
