// Package identifier walks a resolved repository tree and assigns every
// file and directory a stable id, producing the Repository/Document graph
// the rest of the pipeline operates on.
package identifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/sourcehost"
)

// excludeDirs are directory names (or path suffixes) never walked into. The
// list is fixed here; no configuration setting adds to it.
var excludeDirs = []string{
	".git",
	".github",
	".vscode",
	"node_modules",
	"venv",
	"patch",
	"packages/blobs",
	"dist",
}

// excludeExts are filename suffixes skipped outright without reading the
// file's content. Several entries here are exact filenames rather than
// extensions (e.g. "LICENSE"), matching the reference list's use of
// endswith for both purposes.
var excludeExts = []string{
	".min.js", ".min.js.map", ".min.css", ".min.css.map",
	".tfstate", ".tfstate.backup",
	".jar", ".ipynb",
	".png", ".jpg", ".jpeg", ".download", ".gif", ".bmp", ".tiff", ".ico",
	".mp3", ".wav", ".wma", ".ogg", ".flac",
	".mp4", ".avi", ".mkv", ".mov", ".wmv", ".m4a", ".m4v", ".3gp", ".3g2", ".rm", ".swf", ".flv",
	".patch", ".patch.disabled",
	".iso", ".bin", ".tar", ".zip", ".7z", ".gz", ".rar",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".svg", ".parquet", ".pyc", ".pub", ".pem", ".ttf", ".dfn", ".dfm", ".feature",
	"sweep.yaml", "pnpm-lock.yaml", "LICENSE", "poetry.lock",
}

// MaxFileSizeBytes is the cap above which a file is skipped without being
// read: ~247,500 bytes is roughly 50k tokens depending on the model, the
// same margin the reference implementation leaves itself.
const MaxFileSizeBytes = 247500

// Identifier walks a repository tree via a sourcehost.Handle and builds the
// Document/Repository graph with fresh ids.
type Identifier struct {
	classifier       SourceClassifier
	maxFileSizeBytes int64
}

func New(classifier SourceClassifier, maxFileSizeBytes int64) *Identifier {
	if classifier == nil {
		classifier = NewExtensionClassifier()
	}
	if maxFileSizeBytes <= 0 {
		maxFileSizeBytes = MaxFileSizeBytes
	}
	return &Identifier{classifier: classifier, maxFileSizeBytes: maxFileSizeBytes}
}

type queueItem struct {
	id   string
	path string
}

// Identify performs a breadth-first walk of handle's tree starting at its
// root, assigning a uuid to every visited node and recording its parent in
// the dependency map. Directories left with no surviving children after the
// walk are pruned, since an empty directory document carries nothing worth
// generating.
func (idr *Identifier) Identify(ctx context.Context, handle sourcehost.Handle, ownerID, repoURL string) (*docmodel.Repository, error) {
	repoID := uuid.NewString()
	rootID := uuid.NewString()

	root := docmodel.Document{
		ID:           rootID,
		RepoID:       repoID,
		OwnerID:      ownerID,
		SourceURL:    repoURL,
		RelativePath: "",
		Kind:         docmodel.KindDirectory,
		Status:       docmodel.StatusNotStarted,
	}

	docs := map[string]docmodel.Document{rootID: root}
	dependencies := make(map[string]string)

	queue := []queueItem{{id: rootID, path: ""}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := queue[0]
		queue = queue[1:]

		entries, err := handle.ListDir(ctx, item.path)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", item.path, err)
		}

		for _, entry := range entries {
			skip, err := idr.skipNode(ctx, handle, entry)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}

			id := uuid.NewString()
			kind := docmodel.KindFile
			if entry.Kind == sourcehost.EntryDir {
				kind = docmodel.KindDirectory
			}

			var size *int64
			if kind == docmodel.KindFile {
				s := entry.Size
				size = &s
			}

			doc := docmodel.Document{
				ID:           id,
				RepoID:       repoID,
				OwnerID:      ownerID,
				SourceURL:    repoURL,
				RelativePath: entry.Path,
				Kind:         kind,
				SizeBytes:    size,
				Status:       docmodel.StatusNotStarted,
			}
			docs[id] = doc
			dependencies[id] = item.id

			if kind == docmodel.KindDirectory {
				queue = append(queue, queueItem{id: id, path: entry.Path})
			}
		}
	}

	pruneEmptyDirectories(rootID, docs, dependencies)

	return &docmodel.Repository{
		ID:           repoID,
		OwnerID:      ownerID,
		Name:         handle.FullName(),
		RootDocID:    rootID,
		Dependencies: dependencies,
		Docs:         docs,
		Status:       docmodel.StatusNotStarted,
	}, nil
}

// skipNode mirrors the reference implementation's dual file/directory
// predicate: directories are excluded by name/path suffix, files are
// excluded by name pattern, size cap, or failing the source classifier.
func (idr *Identifier) skipNode(ctx context.Context, handle sourcehost.Handle, entry sourcehost.Entry) (bool, error) {
	if entry.Kind == sourcehost.EntryDir {
		if strings.HasPrefix(entry.Name, ".") || strings.HasPrefix(entry.Name, "_") || strings.HasPrefix(entry.Name, "..") {
			return true, nil
		}
		for _, dir := range excludeDirs {
			if strings.HasSuffix(entry.Path, dir) {
				return true, nil
			}
		}
		return false, nil
	}

	isInvalidName := strings.HasPrefix(entry.Name, "_") || strings.HasPrefix(entry.Name, ".") || strings.HasPrefix(entry.Name, "..") || hasExcludedSuffix(entry.Name)
	isTooLarge := entry.Size > idr.maxFileSizeBytes
	if isInvalidName || isTooLarge {
		return true, nil
	}

	content, err := handle.ReadFile(ctx, entry.Path)
	if err != nil {
		return true, nil //nolint:nilerr // an unreadable file is treated as unidentifiable, not a hard failure
	}
	return !idr.classifier.IsSourceCode(entry.Name, content), nil
}

func hasExcludedSuffix(name string) bool {
	for _, ext := range excludeExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// pruneEmptyDirectories removes directory documents (other than the root)
// that ended up with no children after exclusion, walking bottom-up so a
// directory that becomes empty once its own empty subdirectories are
// removed is pruned too.
func pruneEmptyDirectories(rootID string, docs map[string]docmodel.Document, dependencies map[string]string) {
	children := make(map[string][]string)
	for child, parent := range dependencies {
		children[parent] = append(children[parent], child)
	}

	var order []string
	var walk func(id string)
	walk = func(id string) {
		for _, child := range children[id] {
			walk(child)
		}
		order = append(order, id)
	}
	walk(rootID)

	for _, id := range order {
		if id == rootID {
			continue
		}
		doc := docs[id]
		if doc.Kind != docmodel.KindDirectory {
			continue
		}
		if len(children[id]) == 0 {
			parent := dependencies[id]
			delete(docs, id)
			delete(dependencies, id)
			siblings := children[parent]
			for i, sib := range siblings {
				if sib == id {
					children[parent] = append(siblings[:i], siblings[i+1:]...)
					break
				}
			}
		}
	}
}
