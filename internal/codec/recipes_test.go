package codec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
)

func TestRecipeManagerSaveAndGet(t *testing.T) {
	rm := NewRecipeManager("")

	recipe := &Recipe{
		Name:         "b64-to-hex",
		Description:  "Base64 to Base16",
		Tags:         []string{"base64", "hex"},
		InputFormat:  FormatBase64,
		OutputFormat: FormatBase16,
	}

	if err := rm.SaveRecipe(recipe); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	retrieved, exists := rm.GetRecipe("b64-to-hex")
	if !exists {
		t.Fatal("recipe should exist")
	}
	if retrieved.Description != recipe.Description {
		t.Errorf("expected description %q, got %q", recipe.Description, retrieved.Description)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if retrieved.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestRecipeManagerResaveKeepsCreatedAt(t *testing.T) {
	rm := NewRecipeManager(t.TempDir())
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rm.now = func() time.Time { return clock }

	if err := rm.SaveRecipe(&Recipe{Name: "r", InputFormat: FormatBase16, OutputFormat: FormatBase64}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	clock = clock.Add(time.Hour)
	if err := rm.SaveRecipe(&Recipe{Name: "r", Description: "updated", InputFormat: FormatBase16, OutputFormat: FormatBase32}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	got, _ := rm.GetRecipe("r")
	if !got.CreatedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt changed on resave: %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(clock) {
		t.Errorf("expected UpdatedAt %v, got %v", clock, got.UpdatedAt)
	}
	if got.OutputFormat != FormatBase32 {
		t.Errorf("expected updated output format, got %s", got.OutputFormat)
	}
}

func TestRecipeManagerRejectsInvalidRecipes(t *testing.T) {
	rm := NewRecipeManager("")

	tests := []struct {
		name   string
		recipe *Recipe
	}{
		{"nil", nil},
		{"empty name", &Recipe{InputFormat: FormatBase64, OutputFormat: FormatBase16}},
		{"encode-only input", &Recipe{Name: "bad-in", InputFormat: FormatHash, OutputFormat: FormatBase16}},
		{"decode-only output", &Recipe{Name: "bad-out", InputFormat: FormatBase16, OutputFormat: FormatEscaped}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := rm.SaveRecipe(tt.recipe); err == nil {
				t.Error("expected error")
			}
		})
	}
	if len(rm.ListRecipes()) != 0 {
		t.Error("invalid recipes should not be stored")
	}
}

func TestRecipeManagerListSorted(t *testing.T) {
	rm := NewRecipeManager("")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := rm.SaveRecipe(&Recipe{Name: name, InputFormat: FormatBase16, OutputFormat: FormatBase64}); err != nil {
			t.Fatalf("SaveRecipe failed: %v", err)
		}
	}

	list := rm.ListRecipes()
	if len(list) != 3 {
		t.Fatalf("expected 3 recipes, got %d", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "mid" || list[2].Name != "zeta" {
		t.Errorf("recipes not sorted: %s, %s, %s", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestRecipeManagerDelete(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	if err := rm.SaveRecipe(&Recipe{Name: "to delete", InputFormat: FormatBase16, OutputFormat: FormatBase64}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	path := filepath.Join(tempDir, "to_20delete.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("recipe file should exist: %v", err)
	}

	if err := rm.DeleteRecipe("to delete"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}
	if _, exists := rm.GetRecipe("to delete"); exists {
		t.Error("recipe should not exist after deletion")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("recipe file should be removed")
	}
}

func TestRecipeManagerPersistence(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	recipe := &Recipe{
		Name:          "qp-latin1",
		Description:   "Quoted-printable in Latin-1",
		Tags:          []string{"mail"},
		InputFormat:   FormatQuotedPrintable,
		InputCharset:  "ISO-8859-1",
		OutputFormat:  FormatString,
		OutputCharset: "ISO-8859-1",
		Escape:        EscapeOptions{HexWidth: HexGreedy, Strict: true},
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	rm2 := NewRecipeManager(tempDir)
	if err := rm2.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}

	retrieved, exists := rm2.GetRecipe("qp-latin1")
	if !exists {
		t.Fatal("recipe should exist after loading from disk")
	}
	if retrieved.InputFormat != FormatQuotedPrintable || retrieved.OutputFormat != FormatString {
		t.Errorf("formats not preserved: %s -> %s", retrieved.InputFormat, retrieved.OutputFormat)
	}
	if retrieved.InputCharset != "ISO-8859-1" {
		t.Errorf("expected input charset ISO-8859-1, got %q", retrieved.InputCharset)
	}
	if retrieved.Escape.HexWidth != HexGreedy || !retrieved.Escape.Strict {
		t.Errorf("escape options not preserved: %+v", retrieved.Escape)
	}

	result, err := Convert(retrieved.Request("caf=E9"))
	if err != nil {
		t.Fatalf("convert with recipe failed: %v", err)
	}
	if result.Text != "café" {
		t.Errorf("expected café, got %q", result.Text)
	}
}

func TestRecipeManagerLoadMissingDirectory(t *testing.T) {
	rm := NewRecipeManager(filepath.Join(t.TempDir(), "missing"))
	if err := rm.LoadRecipes(); err != nil {
		t.Fatalf("missing directory should not be an error: %v", err)
	}
}

func TestRecipeManagerLoadRejectsBadFiles(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	rm := NewRecipeManager(tempDir)
	if err := rm.LoadRecipes(); err == nil {
		t.Error("expected parse error")
	}

	tempDir = t.TempDir()
	bad := `{"name":"x","input_format":"hash","output_format":"base16"}`
	if err := os.WriteFile(filepath.Join(tempDir, "x.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	rm = NewRecipeManager(tempDir)
	if err := rm.LoadRecipes(); err == nil {
		t.Error("expected validation error")
	}
}

func TestRecipeManagerLoadKeepsValidFiles(t *testing.T) {
	tempDir := t.TempDir()
	good := NewRecipeManager(tempDir)
	if err := good.SaveRecipe(&Recipe{Name: "good", InputFormat: FormatBase16, OutputFormat: FormatBase64}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	for _, name := range []string{"broken.json", "worse.json"} {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte("not json"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rm := NewRecipeManager(tempDir)
	err := rm.LoadRecipes()
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("expected 2 aggregated errors, got %v", err)
	}
	if _, ok := rm.GetRecipe("good"); !ok {
		t.Error("valid recipe should load despite broken neighbours")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".recipe-") {
			t.Errorf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestRecipeManagerSearch(t *testing.T) {
	rm := NewRecipeManager("")

	recipes := []*Recipe{
		{Name: "url-decoder", Description: "Decodes URL parameters", Tags: []string{"web", "decode"}, InputFormat: FormatURL, InputCharset: "UTF-8", OutputFormat: FormatString, OutputCharset: "UTF-8"},
		{Name: "mime-body", Description: "Double check mail bodies", Tags: []string{"mail"}, InputFormat: FormatBase64MIME, OutputFormat: FormatString, OutputCharset: "UTF-8"},
		{Name: "form-encoder", Description: "Encodes form values", Tags: []string{"web", "encode"}, InputFormat: FormatString, InputCharset: "UTF-8", OutputFormat: FormatURL, OutputCharset: "UTF-8"},
	}
	for _, recipe := range recipes {
		if err := rm.SaveRecipe(recipe); err != nil {
			t.Fatalf("SaveRecipe failed: %v", err)
		}
	}

	if results := rm.SearchRecipes("web"); len(results) != 2 {
		t.Errorf("expected 2 web recipes, got %d", len(results))
	}
	if results := rm.SearchRecipes("DECODER"); len(results) != 1 {
		t.Errorf("expected 1 decoder recipe, got %d", len(results))
	}
	if results := rm.SearchRecipes("Double"); len(results) != 1 {
		t.Errorf("expected 1 recipe with 'Double' in description, got %d", len(results))
	}
	if results := rm.SearchRecipes("nothing-matches"); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with space", "with_20space"},
		{"with_underscore", "with_5Funderscore"},
		{"../../etc/passwd", "_2E_2E_2F_2E_2E_2Fetc_2Fpasswd"},
		{"!!!", "_21_21_21"},
		{"café", "caf_C3_A9"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRecipeManagerKeepsSimilarNamesApart(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	if err := rm.SaveRecipe(&Recipe{Name: "b64 hex", InputFormat: FormatBase64, OutputFormat: FormatBase16}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	if err := rm.SaveRecipe(&Recipe{Name: "b64_hex", InputFormat: FormatBase32, OutputFormat: FormatHash}); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	reloaded := NewRecipeManager(tempDir)
	if err := reloaded.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}
	spaced, ok := reloaded.GetRecipe("b64 hex")
	if !ok || spaced.InputFormat != FormatBase64 || spaced.OutputFormat != FormatBase16 {
		t.Fatalf("b64 hex not preserved: %+v", spaced)
	}
	underscored, ok := reloaded.GetRecipe("b64_hex")
	if !ok || underscored.InputFormat != FormatBase32 || underscored.OutputFormat != FormatHash {
		t.Fatalf("b64_hex not preserved: %+v", underscored)
	}

	if err := reloaded.DeleteRecipe("b64 hex"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}
	again := NewRecipeManager(tempDir)
	if err := again.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}
	if _, ok := again.GetRecipe("b64 hex"); ok {
		t.Error("deleted recipe came back")
	}
	if got, ok := again.GetRecipe("b64_hex"); !ok || got.InputFormat != FormatBase32 {
		t.Errorf("b64_hex should survive deleting b64 hex: %+v", got)
	}
}

func TestRecipeManagerRefusesForeignFile(t *testing.T) {
	tempDir := t.TempDir()
	foreign := `{"name":"other","input_format":"base16","output_format":"base64"}`
	path := filepath.Join(tempDir, sanitizeFilename("mine")+recipeExt)
	if err := os.WriteFile(path, []byte(foreign), 0o644); err != nil {
		t.Fatal(err)
	}

	rm := NewRecipeManager(tempDir)
	if err := rm.SaveRecipe(&Recipe{Name: "mine", InputFormat: FormatBase16, OutputFormat: FormatBase32}); err == nil {
		t.Fatal("expected save over another recipe's file to fail")
	}
	if _, ok := rm.GetRecipe("mine"); ok {
		t.Error("rejected recipe should not be stored")
	}

	if err := rm.DeleteRecipe("mine"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != foreign {
		t.Errorf("foreign file should be untouched, got %q, %v", data, err)
	}
}
