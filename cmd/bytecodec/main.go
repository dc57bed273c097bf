package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/RowanDark/bytecodec/internal/codec"
	"github.com/RowanDark/bytecodec/internal/config"
	"github.com/RowanDark/bytecodec/internal/logging"
	"github.com/RowanDark/bytecodec/internal/rpc"
)

const remoteTimeout = 30 * time.Second

type options struct {
	In          string `short:"i" long:"in" value-name:"FORMAT" description:"Input format name or menu code"`
	Out         string `short:"o" long:"out" value-name:"FORMAT" description:"Output format name or menu code"`
	InCharset   string `long:"in-charset" value-name:"CHARSET" description:"Charset of textual input"`
	OutCharset  string `long:"out-charset" value-name:"CHARSET" description:"Charset of textual output"`
	Value       string `short:"v" long:"value" description:"Input value, or the path to read for file input"`
	Offset      int64  `long:"offset" default:"0" description:"First byte to read from an input file"`
	Length      int64  `long:"length" default:"0" description:"Bytes to read from an input file (0 reads to the end)"`
	OutputFile  string `long:"output-file" value-name:"PATH" description:"Destination for file output"`
	Recipe      string `long:"recipe" value-name:"NAME" description:"Apply a saved recipe"`
	SaveRecipe  string `long:"save-recipe" value-name:"NAME" description:"Save the selected formats as a recipe"`
	ListRecipes bool   `long:"list-recipes" description:"List saved recipes and exit"`
	Strict      bool   `long:"strict" description:"Reject undefined or incomplete escape sequences"`
	HexGreedy   bool   `long:"hex-greedy" description:"Let \\x consume every following hex digit"`
	AuditLog    string `long:"audit-log" value-name:"PATH" description:"Append a JSON audit event per conversion"`
	Server      string `long:"server" value-name:"ADDR" description:"Convert on a bytecodecd daemon instead of locally"`
	List        bool   `long:"list" description:"List supported formats and exit"`
	Interactive bool   `long:"interactive" description:"Prompt for missing settings even when stdin is not a terminal"`
	Verbose     bool   `long:"verbose" description:"Write debug logs to stderr"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "bytecodec"
	parser.Usage = "[OPTIONS] [VALUE]"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	if opts.List {
		printFormats(stdout)
		return 0
	}

	recipes := codec.NewRecipeManager(cfg.RecipesPath())
	if opts.Recipe != "" || opts.ListRecipes {
		if err := recipes.LoadRecipes(); err != nil {
			fmt.Fprintf(stderr, "failed to load recipes: %v\n", err)
			return 1
		}
	}
	if opts.ListRecipes {
		printRecipes(stdout, recipes.ListRecipes())
		return 0
	}

	audit, err := openAudit(firstNonEmpty(opts.AuditLog, cfg.AuditLog))
	if err != nil {
		fmt.Fprintf(stderr, "failed to open audit log: %v\n", err)
		return 2
	}
	defer func() {
		if err := audit.Close(); err != nil {
			logger.Warn("Failed to close audit log", "error", err)
		}
	}()

	req := codec.Request{Escape: cfg.EscapeOptions()}
	if opts.Recipe != "" {
		recipe, ok := recipes.GetRecipe(opts.Recipe)
		if !ok {
			fmt.Fprintf(stderr, "recipe %q not found\n", opts.Recipe)
			return 2
		}
		req = recipe.Request("")
		if err := audit.Emit(logging.AuditEvent{
			EventType: logging.EventRecipeApplied,
			Outcome:   logging.OutcomeInfo,
			Metadata:  map[string]any{"recipe": recipe.Name},
		}); err != nil {
			logger.Warn("Failed to write audit event", "error", err)
		}
		logger.Debug("Applied recipe", "recipe", recipe.Name)
	}

	if err := applyFlags(&req, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	value := opts.Value
	if value == "" && len(rest) > 0 {
		value = strings.Join(rest, " ")
	}

	if !req.InputFormat.Valid() || !req.OutputFormat.Valid() {
		if !opts.Interactive && !isTerminal(stdin) {
			fmt.Fprintln(stderr, "--in and --out are required when stdin is not a terminal")
			return 2
		}
		p := newPrompter(stdin, stdout)
		if err := p.complete(&req, &value, &opts, cfg); err != nil {
			fmt.Fprintf(stderr, "input aborted: %v\n", err)
			return 2
		}
	} else if value == "" && req.InputFormat != codec.FormatFile {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read stdin: %v\n", err)
			return 1
		}
		value = strings.TrimRight(string(data), "\r\n")
	}

	if req.InputCharset == "" {
		req.InputCharset = cfg.Charsets.Input
	}
	if req.OutputCharset == "" {
		req.OutputCharset = cfg.Charsets.Output
	}
	req.Offset = opts.Offset
	req.OutputPath = opts.OutputFile

	if req.InputFormat == codec.FormatFile {
		data, err := readFilePart(value, opts.Offset, opts.Length)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read input file: %v\n", err)
			return 1
		}
		req.Data = data
	} else {
		req.Input = value
	}

	if opts.SaveRecipe != "" {
		if err := saveRecipe(recipes, opts.SaveRecipe, req); err != nil {
			fmt.Fprintf(stderr, "failed to save recipe: %v\n", err)
			return 1
		}
		logger.Debug("Saved recipe", "recipe", opts.SaveRecipe)
	}

	res, err := convert(opts.Server, req)
	if auditErr := audit.Emit(logging.ConversionEvent(req, res, err)); auditErr != nil {
		logger.Warn("Failed to write audit event", "error", auditErr)
	}
	if err != nil {
		logger.Debug("Conversion failed", "error_kind", logging.ErrorKind(err), "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}

	if res.Kind == codec.ResultBytes {
		if err := writeFile(res.Path, res.Bytes); err != nil {
			fmt.Fprintf(stderr, "failed to write output file: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(stdout, "Result (%d bytes):\n", len(res.Bytes))
	fmt.Fprintln(stdout, res.String())
	return 0
}

// applyFlags overlays command line settings on req.
func applyFlags(req *codec.Request, opts options) error {
	if opts.In != "" {
		f, err := codec.ParseFormat(opts.In)
		if err != nil {
			return fmt.Errorf("--in: %w", err)
		}
		req.InputFormat = f
	}
	if opts.Out != "" {
		f, err := codec.ParseFormat(opts.Out)
		if err != nil {
			return fmt.Errorf("--out: %w", err)
		}
		req.OutputFormat = f
	}
	if opts.InCharset != "" {
		req.InputCharset = opts.InCharset
	}
	if opts.OutCharset != "" {
		req.OutputCharset = opts.OutCharset
	}
	if opts.Strict {
		req.Escape.Strict = true
	}
	if opts.HexGreedy {
		req.Escape.HexWidth = codec.HexGreedy
	}
	if opts.Offset < 0 {
		return errors.New("--offset must not be negative")
	}
	if opts.Length < 0 {
		return errors.New("--length must not be negative")
	}
	return nil
}

func convert(server string, req codec.Request) (codec.Result, error) {
	if server == "" {
		return codec.Convert(req)
	}

	conn, err := grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return codec.Result{}, fmt.Errorf("connect to %s: %w", server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	return rpc.NewClient(conn).Convert(ctx, req)
}

func exitCode(err error) int {
	if errors.Is(err, codec.ErrConfiguration) {
		return 2
	}
	if info, ok := rpc.ErrorInfo(err); ok && info.GetReason() == rpc.ReasonConfiguration {
		return 2
	}
	return 1
}

func openAudit(path string) (*logging.AuditLogger, error) {
	if path == "" {
		return logging.NewDiscardLogger("cli"), nil
	}
	return logging.NewAuditLogger("cli", logging.WithoutStdout(), logging.WithFile(path))
}

func saveRecipe(rm *codec.RecipeManager, name string, req codec.Request) error {
	return rm.SaveRecipe(&codec.Recipe{
		Name:          name,
		InputFormat:   req.InputFormat,
		InputCharset:  req.InputCharset,
		OutputFormat:  req.OutputFormat,
		OutputCharset: req.OutputCharset,
		Escape:        req.Escape,
	})
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printFormats(w io.Writer) {
	for _, info := range codec.Describe() {
		var caps []string
		if info.Decodable {
			caps = append(caps, "in")
		}
		if info.Encodable {
			caps = append(caps, "out")
		}
		if info.CharsetParametric {
			caps = append(caps, "charset")
		}
		fmt.Fprintf(w, "%s  %-16s  %-11s  %s\n", info.Code, info.Name, strings.Join(caps, ","), info.Description)
	}
}

func printRecipes(w io.Writer, recipes []*codec.Recipe) {
	if len(recipes) == 0 {
		fmt.Fprintln(w, "no recipes saved")
		return
	}
	for _, r := range recipes {
		fmt.Fprintf(w, "%s\t%s -> %s\t%s\n", r.Name, r.InputFormat, r.OutputFormat, r.Description)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
