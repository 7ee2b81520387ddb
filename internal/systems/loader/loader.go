package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/louisbranch/rpg-systems/internal/platform/errors"
	"github.com/louisbranch/rpg-systems/internal/systems/issue"
	"github.com/louisbranch/rpg-systems/internal/systems/jsonfile"
	"github.com/louisbranch/rpg-systems/internal/systems/stats"
	"github.com/louisbranch/rpg-systems/internal/systems/system"
)

// FailureKind classifies why a system folder could not be loaded.
type FailureKind string

const (
	FailureMissingMain FailureKind = "missing_main_file"
	FailureUnreadable  FailureKind = "unreadable_file"
	FailureMalformed   FailureKind = "malformed_document"
)

// Failure is the structured reason a system folder could not be loaded.
type Failure struct {
	Kind FailureKind
	Path string
	Err  error
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Path, f.Err)
}

// Unwrap exposes the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Entry is the load outcome of one candidate system folder. Exactly one of
// System and Failure is set.
type Entry struct {
	Name    string
	Dir     string
	System  *System
	Failure *Failure
}

// Issue converts a failed entry into a reportable issue.
func (e Entry) Issue(base string) issue.Issue {
	if e.Failure == nil {
		return issue.Issue{}
	}
	kind := issue.KindIO
	if e.Failure.Kind == FailureMalformed {
		kind = issue.KindParse
	}
	item := issue.Errorf(kind, nil, "%s: %v", strings.ReplaceAll(string(e.Failure.Kind), "_", " "), e.Failure.Err)
	item.System = e.Name
	item.File = RelPath(base, e.Failure.Path)
	return item
}

// System is a loaded system folder.
type System struct {
	Name string
	Dir  string
	// Base is the directory file paths are reported relative to.
	Base string

	DefinitionPath string
	// Definition is the parsed system.rpg.json document.
	Definition    any
	DefinitionRaw []byte

	Resources     []Resource
	InstanceFiles []string

	// Issues collects non-fatal problems found while reading resource files.
	Issues []issue.Issue
}

// Rel returns path relative to the system's report base.
func (s *System) Rel(path string) string {
	return RelPath(s.Base, path)
}

// StatSchemas returns the stat schema of every resource that declares stats.
func (s *System) StatSchemas() stats.Set {
	set := make(stats.Set)
	for _, res := range s.Resources {
		if res.StatsPath == "" {
			continue
		}
		set[res.ID] = stats.NewSchema(res.Stats)
	}
	return set
}

// Resource is one entry of a system's resources folder.
type Resource struct {
	ID   string
	Path string
	Dir  bool

	DocumentPath string
	// Document is the parsed resource document, nil when absent or unreadable.
	Document    any
	DocumentRaw []byte

	StatsPath string
	StatsRaw  []byte
	Stats     []stats.Declaration
}

// Discover resolves root into a report base and the candidate system
// directories below it. root may be a repository root containing systems/,
// a systems directory, or a single system directory.
func Discover(root string) (base string, dirs []string, err error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, apperrors.WrapWithMetadata(apperrors.CodeIO, "stat root", map[string]string{"path": root}, err)
	}
	if !info.IsDir() {
		return "", nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "root is not a directory", map[string]string{"path": root})
	}

	if isFile(filepath.Join(root, system.DefinitionFile)) {
		return filepath.Dir(root), []string{root}, nil
	}

	systemsDir := root
	if isDir(filepath.Join(root, system.SystemsDir)) {
		systemsDir = filepath.Join(root, system.SystemsDir)
	}
	entries, err := os.ReadDir(systemsDir)
	if err != nil {
		return "", nil, apperrors.WrapWithMetadata(apperrors.CodeIO, "read systems directory", map[string]string{"path": systemsDir}, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		dirs = append(dirs, filepath.Join(systemsDir, entry.Name()))
	}
	sort.Strings(dirs)
	return root, dirs, nil
}

// Load discovers and loads every system below root, in directory name order.
// An empty systems directory yields no entries and no error.
func Load(root string) ([]Entry, error) {
	base, dirs, err := Discover(root)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirs))
	for _, dir := range dirs {
		entries = append(entries, LoadSystem(base, dir))
	}
	return entries, nil
}

// LoadSystem reads one system directory.
func LoadSystem(base, dir string) Entry {
	entry := Entry{Name: filepath.Base(dir), Dir: dir}
	defPath := filepath.Join(dir, system.DefinitionFile)

	file, doc, err := jsonfile.Load(defPath)
	if err != nil {
		entry.Failure = classifyFailure(defPath, err)
		return entry
	}

	sys := &System{
		Name:           entry.Name,
		Dir:            dir,
		Base:           base,
		DefinitionPath: defPath,
		Definition:     doc,
		DefinitionRaw:  file.Text,
	}
	sys.Resources = loadResources(sys)
	instances, err := ListInstanceFiles(dir)
	if err != nil {
		sys.Issues = append(sys.Issues, fileIssue(sys, filepath.Join(dir, system.InstancesDir), err))
	}
	sys.InstanceFiles = instances
	entry.System = sys
	return entry
}

// ListInstanceFiles returns every .json and .rpg file below the system's
// resource_instances folder, skipping hidden files. A missing folder yields
// no files.
func ListInstanceFiles(systemDir string) ([]string, error) {
	root := filepath.Join(systemDir, system.InstancesDir)
	if !isDir(root) {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if hidden(name) {
			return nil
		}
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".rpg") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, apperrors.Wrap(apperrors.CodeIO, "walk resource instances", err)
	}
	sort.Strings(files)
	return files, nil
}

// RelPath renders path relative to base with forward slashes, falling back
// to path when it is not below base.
func RelPath(base, path string) string {
	if base == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func loadResources(sys *System) []Resource {
	dir := filepath.Join(sys.Dir, system.ResourcesDir)
	resources, err := loadResourceEntries(sys, dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			sys.Issues = append(sys.Issues, fileIssue(sys, dir, apperrors.Wrap(apperrors.CodeIO, "read resources directory", err)))
		}
		return nil
	}
	return resources
}

// loadResourceEntries reads the resources below dir. Directories holding
// neither a resource document nor stats but other directories are grouping
// folders: their contents are loaded as resources keyed by their own names.
func loadResourceEntries(sys *System, dir string) ([]Resource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var resources []Resource
	for _, entry := range entries {
		name := entry.Name()
		if hidden(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if entry.IsDir() {
			if !isGroupDir(path) {
				resources = append(resources, loadResourceDir(sys, name, path))
				continue
			}
			nested, err := loadResourceEntries(sys, path)
			if err != nil {
				sys.Issues = append(sys.Issues, fileIssue(sys, path, apperrors.Wrap(apperrors.CodeIO, "read resource group", err)))
				continue
			}
			resources = append(resources, nested...)
			continue
		}
		id, ok := resourceFileID(name)
		if !ok {
			continue
		}
		res := Resource{ID: id, Path: path, DocumentPath: path}
		readResourceDocument(sys, &res)
		resources = append(resources, res)
	}
	return resources, nil
}

func isGroupDir(path string) bool {
	if isFile(filepath.Join(path, system.ResourceDocumentFile)) || isFile(filepath.Join(path, system.StatsFile)) {
		return false
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() && !hidden(entry.Name()) {
			return true
		}
	}
	return false
}

func loadResourceDir(sys *System, id, path string) Resource {
	res := Resource{ID: id, Path: path, Dir: true}

	docPath := filepath.Join(path, system.ResourceDocumentFile)
	if isFile(docPath) {
		res.DocumentPath = docPath
		readResourceDocument(sys, &res)
	}

	statsPath := filepath.Join(path, system.StatsFile)
	if isFile(statsPath) {
		res.StatsPath = statsPath
		file, err := jsonfile.Read(statsPath)
		if err != nil {
			sys.Issues = append(sys.Issues, fileIssue(sys, statsPath, err))
			return res
		}
		res.StatsRaw = file.Text
		decls, err := stats.Parse(file.Text)
		if err != nil {
			sys.Issues = append(sys.Issues, fileIssue(sys, statsPath, apperrors.Wrap(apperrors.CodeParse, "parse stats", err)))
			return res
		}
		res.Stats = decls
	}
	return res
}

func readResourceDocument(sys *System, res *Resource) {
	file, doc, err := jsonfile.Load(res.DocumentPath)
	if err != nil {
		sys.Issues = append(sys.Issues, fileIssue(sys, res.DocumentPath, err))
		return
	}
	res.Document = doc
	res.DocumentRaw = file.Text
}

func resourceFileID(name string) (string, bool) {
	for _, suffix := range []string{".rpg.json", ".json"} {
		if strings.HasSuffix(name, suffix) {
			id := strings.TrimSuffix(name, suffix)
			return id, id != ""
		}
	}
	return "", false
}

func classifyFailure(path string, err error) *Failure {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Failure{Kind: FailureMissingMain, Path: path, Err: fmt.Errorf("%s not found", system.DefinitionFile)}
	case apperrors.HasCode(err, apperrors.CodeParse):
		return &Failure{Kind: FailureMalformed, Path: path, Err: err}
	default:
		return &Failure{Kind: FailureUnreadable, Path: path, Err: err}
	}
}

func fileIssue(sys *System, path string, err error) issue.Issue {
	kind := issue.KindIO
	if apperrors.HasCode(err, apperrors.CodeParse) {
		kind = issue.KindParse
	}
	item := issue.Errorf(kind, nil, "%v", err)
	item.System = sys.Name
	item.File = sys.Rel(path)
	return item
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
