package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RowanDark/bytecodec/internal/codec"
	"github.com/RowanDark/bytecodec/internal/config"
)

var errNoInput = errors.New("no more input")

// prompter asks for the settings the command line left out, using the
// single-character menu codes.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", errNoInput
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *prompter) chooseFormat(side codec.Side, allowed func(codec.Format) bool) (codec.Format, error) {
	fmt.Fprintf(p.out, "%s formats:\n", titleCase(string(side)))
	for _, f := range codec.Formats() {
		if allowed(f) {
			fmt.Fprintf(p.out, "  [%c] %s\n", f.Code(), f.Description())
		}
	}
	for {
		answer, err := p.ask(fmt.Sprintf("Choose %s format: ", side))
		if err != nil {
			return 0, err
		}
		f, err := codec.ParseFormat(answer)
		if err == nil && allowed(f) {
			return f, nil
		}
		fmt.Fprintf(p.out, "%q is not a valid %s format\n", answer, side)
	}
}

func (p *prompter) chooseCharset(side codec.Side, fallback string) (string, error) {
	answer, err := p.ask(fmt.Sprintf("%s charset [%s]: ", titleCase(string(side)), fallback))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return fallback, nil
	}
	return strings.TrimSpace(answer), nil
}

// complete fills in every missing part of req and value.
func (p *prompter) complete(req *codec.Request, value *string, opts *options, cfg config.Config) error {
	var err error
	if !req.InputFormat.Valid() {
		if req.InputFormat, err = p.chooseFormat(codec.SideInput, codec.Format.Decodable); err != nil {
			return err
		}
	}
	if req.InputFormat.CharsetParametric() && req.InputCharset == "" {
		if req.InputCharset, err = p.chooseCharset(codec.SideInput, cfg.Charsets.Input); err != nil {
			return err
		}
	}
	if *value == "" {
		label := "Value: "
		if req.InputFormat == codec.FormatFile {
			label = "File path: "
		}
		if *value, err = p.ask(label); err != nil {
			return err
		}
	}

	if !req.OutputFormat.Valid() {
		if req.OutputFormat, err = p.chooseFormat(codec.SideOutput, codec.Format.Encodable); err != nil {
			return err
		}
	}
	if req.OutputFormat.CharsetParametric() && req.OutputCharset == "" {
		if req.OutputCharset, err = p.chooseCharset(codec.SideOutput, cfg.Charsets.Output); err != nil {
			return err
		}
	}
	if req.OutputFormat == codec.FormatFile && opts.OutputFile == "" {
		if opts.OutputFile, err = p.ask("Output file: "); err != nil {
			return err
		}
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
