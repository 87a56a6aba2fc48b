package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/example"
	"github.com/credkit/vcschema/internal/watch"
	"github.com/credkit/vcschema/normalize"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <glob>...",
		Short: "Check schema files: parse, examples and JSON-LD normalization",
		Long: `Check every schema file matched by the globs. Patterns support ** for
any number of directories, for example templates/**/*.json.

A file fails when it does not parse, has no credentialSubject, or its
generated example does not normalize. Example type mismatches and schema
lint findings are printed as warnings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files match %v", args)
			}
			checker, err := a.newChecker()
			if err != nil {
				return err
			}
			failed := 0
			for _, f := range files {
				if !a.checkFile(cmd.Context(), checker, f) {
					failed++
				}
			}
			if failed > 0 {
				a.printer.Fail("%d of %d failed", failed, len(files))
				return errFailed
			}
			a.printer.OK("%d checked", len(files))
			return nil
		},
	}
}

func expandGlobs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// checkFile runs every check on one schema file and prints the outcome.
func (a *app) checkFile(ctx context.Context, checker normalize.Checker, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		a.printer.Fail("%s: %v", path, err)
		return false
	}
	doc, err := parseSchema(path, data)
	if err != nil {
		a.printer.Fail("%s", path)
		if iss, ok := vcschema.AsIssues(err); ok {
			a.printer.Issues(iss)
		}
		return false
	}
	form, _, diag, err := vcschema.Import(doc)
	if err != nil {
		a.printer.Fail("%s", path)
		if iss, ok := vcschema.AsIssues(err); ok {
			a.printer.Issues(iss)
		}
		return false
	}
	warns := vcschema.AppendIssues(nil, diag.Warnings...)
	warns = vcschema.AppendIssues(warns, vcschema.CheckExamples(form.Properties)...)

	cred := example.Generate(doc)
	if findings, err := example.Lint(doc, cred); err != nil {
		a.logger.Debug("lint skipped", "file", path, "error", err)
	} else {
		warns = vcschema.AppendIssues(warns, findings...)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Normalize.Timeout)
	defer cancel()
	res := checker.Check(ctx, cred)
	a.printer.Status(path, res.Status)
	if res.Status != normalize.StatusValid {
		a.printer.Issues(append(vcschema.Issues{normalizeIssue(res)}, warns...))
		return false
	}
	if len(warns) > 0 {
		a.printer.Warn("%s: %d warning(s)", path, len(warns))
		a.printer.Issues(warns)
	}
	return true
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <schema>...",
		Short: "Re-check schema files whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, err := a.newChecker()
			if err != nil {
				return err
			}
			w, err := watch.New(args, watch.DefaultDebounce, a.logger)
			if err != nil {
				return err
			}
			for _, f := range args {
				a.checkFile(cmd.Context(), checker, f)
			}
			done := make(chan error, 1)
			go func() { done <- w.Run(cmd.Context()) }()
			for name := range w.Events() {
				a.checkFile(cmd.Context(), checker, name)
			}
			return <-done
		},
	}
}
