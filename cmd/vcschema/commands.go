package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/example"
	"github.com/credkit/vcschema/jsonschema"
	"github.com/credkit/vcschema/normalize"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		contexts []string
		asYAML   bool
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export <form.json>",
		Short: "Convert an editor form into a credential JSON Schema",
		Long: `Convert the editor form (title, $comment, allowId, properties) into the
credential JSON Schema. The W3C VC v2 context is always first; --context adds
more in order. Use - to read the form from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			var form vcschema.FormData
			if err := json.Unmarshal(data, &form); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			cs := vcschema.DefaultContexts()
			for _, uri := range contexts {
				if cs, err = cs.Add(uri); err != nil {
					return err
				}
			}
			if warns := vcschema.CheckExamples(form.Properties); len(warns) > 0 {
				a.printer.Warn("%s: example values do not match their types", args[0])
				a.printer.Issues(warns)
			}
			doc := vcschema.Export(form, cs)
			var b []byte
			if asYAML {
				b, err = vcschema.MarshalSchemaYAML(doc)
			} else {
				b, err = jsonschema.MarshalIndent(doc)
			}
			if err != nil {
				return err
			}
			return a.writeOutput(out, b)
		},
	}
	cmd.Flags().StringArrayVar(&contexts, "context", nil, "additional @context URI (repeatable)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write YAML instead of JSON")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

// importResult is the output of the import command.
type importResult struct {
	Form     vcschema.FormData `json:"form"`
	Contexts []string          `json:"contexts"`
}

func (a *app) importCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "import <schema>",
		Short: "Split a credential JSON Schema into the editor form and contexts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readSchema(args[0])
			if err != nil {
				return err
			}
			form, cs, diag, err := vcschema.Import(doc)
			if err != nil {
				return a.reportIssues(args[0], err)
			}
			if len(diag.Warnings) > 0 {
				a.printer.Warn("%s: imported with changes", args[0])
				a.printer.Issues(diag.Warnings)
			}
			b, err := json.MarshalIndent(importResult{Form: form, Contexts: cs.URIs()}, "", "  ")
			if err != nil {
				return err
			}
			return a.writeOutput(out, b)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) exampleCmd() *cobra.Command {
	var (
		lint bool
		out  string
	)
	cmd := &cobra.Command{
		Use:   "example <schema>",
		Short: "Generate the example credential for a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readSchema(args[0])
			if err != nil {
				return err
			}
			cred := example.Generate(doc)
			if lint {
				findings, err := example.Lint(doc, cred)
				if err != nil {
					return err
				}
				if len(findings) > 0 {
					a.printer.Warn("%s: example does not satisfy the schema", args[0])
					a.printer.Issues(findings)
				}
			}
			b, err := example.MarshalIndent(cred)
			if err != nil {
				return err
			}
			return a.writeOutput(out, b)
		},
	}
	cmd.Flags().BoolVar(&lint, "lint", false, "validate the example against the schema")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) normalizeCmd() *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "normalize [schema]",
		Short: "Normalize an example credential with URDNA2015",
		Long: `Generate the example credential for the schema and print its canonical
N-Quads. With --credential, normalize that credential file instead. Exits
non-zero when normalization fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				subject string
				cred    any
			)
			switch {
			case credential != "":
				data, err := a.readInput(credential)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &cred); err != nil {
					return fmt.Errorf("%s: %w", credential, err)
				}
				subject = credential
			case len(args) == 1:
				doc, err := a.readSchema(args[0])
				if err != nil {
					return err
				}
				cred = example.Generate(doc)
				subject = args[0]
			default:
				return fmt.Errorf("need a schema or --credential")
			}
			checker, err := a.newChecker()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Normalize.Timeout)
			defer cancel()
			res := checker.Check(ctx, cred)
			a.printer.Status(subject, res.Status)
			if res.Status != normalize.StatusValid {
				a.printer.Issues(vcschema.Issues{normalizeIssue(res)})
				return errFailed
			}
			_, err = io.WriteString(a.stdout, res.Output)
			return err
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "credential JSON to normalize instead of the generated example")
	return cmd
}

// errFailed reports a failure that has already been printed.
var errFailed = errors.New("check failed")

func normalizeIssue(res normalize.Result) vcschema.Issue {
	is := vcschema.NewIssue("/", vcschema.CodeNormalizationFailed, nil)
	if res.Err != nil {
		is.Hint = res.Err.Error()
		is.Cause = res.Err
	}
	return is
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}

func (a *app) writeOutput(path string, b []byte) error {
	if len(b) == 0 || b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}
	if path == "" || path == "-" {
		_, err := a.stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// readSchema reads a schema document, as YAML when the name ends in .yaml or
// .yml. Parse issues are printed before the error is returned.
func (a *app) readSchema(path string) (*jsonschema.Document, error) {
	data, err := a.readInput(path)
	if err != nil {
		return nil, err
	}
	doc, err := parseSchema(path, data)
	if err != nil {
		return nil, a.reportIssues(path, err)
	}
	return doc, nil
}

func parseSchema(path string, data []byte) (*jsonschema.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return vcschema.ParseSchemaYAML(data)
	}
	return vcschema.ParseSchema(data)
}

// reportIssues prints err as issues when it carries any and returns
// errFailed, or returns err unchanged.
func (a *app) reportIssues(subject string, err error) error {
	iss, ok := vcschema.AsIssues(err)
	if !ok {
		return err
	}
	a.printer.Fail("%s", subject)
	a.printer.Issues(iss)
	return errFailed
}
