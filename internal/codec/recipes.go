package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

const recipeExt = ".json"

// Recipe is a named conversion preset: everything in a Request except the
// value being converted.
type Recipe struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	InputFormat   Format        `json:"input_format"`
	InputCharset  string        `json:"input_charset,omitempty"`
	OutputFormat  Format        `json:"output_format"`
	OutputCharset string        `json:"output_charset,omitempty"`
	Escape        EscapeOptions `json:"escape"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Request builds a conversion request for input from the recipe.
func (r *Recipe) Request(input string) Request {
	return Request{
		Input:         input,
		InputFormat:   r.InputFormat,
		InputCharset:  r.InputCharset,
		OutputFormat:  r.OutputFormat,
		OutputCharset: r.OutputCharset,
		Escape:        r.Escape,
	}
}

func (r *Recipe) validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return errors.New("recipe name cannot be empty")
	case !r.InputFormat.Decodable():
		return fmt.Errorf("recipe %s: %s cannot be used as an input format", r.Name, r.InputFormat)
	case !r.OutputFormat.Encodable():
		return fmt.Errorf("recipe %s: %s cannot be used as an output format", r.Name, r.OutputFormat)
	}
	return nil
}

func (r *Recipe) matches(needle string) bool {
	if strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle) {
		return true
	}
	return slices.ContainsFunc(r.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), needle)
	})
}

// RecipeManager keeps recipes in memory and, when given a directory, one
// JSON file per recipe.
type RecipeManager struct {
	mu        sync.RWMutex
	recipes   map[string]*Recipe
	storePath string
	now       func() time.Time
}

// NewRecipeManager creates a new recipe manager. An empty storePath keeps
// recipes in memory only.
func NewRecipeManager(storePath string) *RecipeManager {
	return &RecipeManager{
		recipes:   make(map[string]*Recipe),
		storePath: storePath,
		now:       time.Now,
	}
}

// SaveRecipe validates recipe, writes it to disk and then makes it visible.
// A failed write leaves the previous version in place.
func (rm *RecipeManager) SaveRecipe(recipe *Recipe) error {
	if recipe == nil {
		return errors.New("recipe cannot be nil")
	}
	if err := recipe.validate(); err != nil {
		return err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	stamp := rm.now().UTC().Truncate(time.Second)
	if prev, ok := rm.recipes[recipe.Name]; ok && recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = prev.CreatedAt
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = stamp
	}
	recipe.UpdatedAt = stamp

	if rm.storePath != "" {
		if err := rm.writeFile(recipe); err != nil {
			return err
		}
	}
	rm.recipes[recipe.Name] = recipe
	return nil
}

func (rm *RecipeManager) GetRecipe(name string) (*Recipe, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipe, ok := rm.recipes[name]
	return recipe, ok
}

// ListRecipes returns all recipes sorted by name.
func (rm *RecipeManager) ListRecipes() []*Recipe {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]*Recipe, 0, len(rm.recipes))
	for _, recipe := range rm.recipes {
		out = append(out, recipe)
	}
	slices.SortFunc(out, func(a, b *Recipe) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// DeleteRecipe removes a recipe and its file. Unknown names are not an error.
// A file holding a different recipe's name is left alone.
func (rm *RecipeManager) DeleteRecipe(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.storePath != "" {
		path := rm.pathFor(name)
		if owner, err := fileOwner(path); err == nil && owner == name {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to delete recipe file: %w", err)
			}
		}
	}
	delete(rm.recipes, name)
	return nil
}

// LoadRecipes reads every recipe file in the store directory. Valid files
// are loaded even when others fail; the failures are returned together. A
// missing directory holds no recipes.
func (rm *RecipeManager) LoadRecipes() error {
	if rm.storePath == "" {
		return nil
	}

	entries, err := os.ReadDir(rm.storePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read recipes directory: %w", err)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	var errs *multierror.Error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recipeExt {
			continue
		}
		recipe, err := readRecipe(filepath.Join(rm.storePath, entry.Name()))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", entry.Name(), err))
			continue
		}
		rm.recipes[recipe.Name] = recipe
	}
	return errs.ErrorOrNil()
}

// SearchRecipes finds recipes whose name, description or tags contain
// query, case-insensitively.
func (rm *RecipeManager) SearchRecipes(query string) []*Recipe {
	needle := strings.ToLower(query)
	results := make([]*Recipe, 0)
	for _, recipe := range rm.ListRecipes() {
		if recipe.matches(needle) {
			results = append(results, recipe)
		}
	}
	return results
}

func readRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := recipe.validate(); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// writeFile replaces the recipe's file through a rename so readers never
// see a partial document.
func (rm *RecipeManager) writeFile(recipe *Recipe) error {
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}
	path := rm.pathFor(recipe.Name)
	if owner, err := fileOwner(path); err == nil && owner != recipe.Name {
		return fmt.Errorf("recipe %q: file %s belongs to recipe %q", recipe.Name, filepath.Base(path), owner)
	}
	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize recipe: %w", err)
	}

	tmp, err := os.CreateTemp(rm.storePath, ".recipe-*")
	if err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

func (rm *RecipeManager) pathFor(name string) string {
	return filepath.Join(rm.storePath, sanitizeFilename(name)+recipeExt)
}

// fileOwner returns the recipe name stored in path. Case-insensitive
// filesystems can map two distinct names onto one file.
func fileOwner(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var stored struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	return stored.Name, nil
}

// sanitizeFilename maps a recipe name onto [A-Za-z0-9_-]. Bytes outside
// [A-Za-z0-9-] become _XX in hex, '_' included, so distinct names never
// share a file.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}
	return b.String()
}
