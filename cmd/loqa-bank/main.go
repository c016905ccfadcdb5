package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loqalabs/loqa-interview/internal/questionbank"
	"github.com/loqalabs/loqa-interview/internal/scoring"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "expected 'validate', 'list', 'score' or 'version'")
		return 2
	}

	var (
		bankPath string
		question int
		text     string
	)
	validateCmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	validateCmd.StringVar(&bankPath, "file", "", "Path to question bank (empty for the built-in bank)")
	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listCmd.StringVar(&bankPath, "file", "", "Path to question bank (empty for the built-in bank)")
	scoreCmd := flag.NewFlagSet("score", flag.ContinueOnError)
	scoreCmd.StringVar(&bankPath, "file", "", "Path to question bank (empty for the built-in bank)")
	scoreCmd.IntVar(&question, "question", 1, "Question number, starting at 1")
	scoreCmd.StringVar(&text, "text", "", "Answer transcript to score")
	for _, fs := range []*flag.FlagSet{validateCmd, listCmd, scoreCmd} {
		fs.SetOutput(stderr)
	}

	switch args[0] {
	case "validate":
		if err := validateCmd.Parse(args[1:]); err != nil {
			return 2
		}
		bank, err := questionbank.LoadOrDefault(bankPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "question bank %q valid (%d questions)\n", bank.Name(), bank.Len())
	case "list":
		if err := listCmd.Parse(args[1:]); err != nil {
			return 2
		}
		bank, err := questionbank.LoadOrDefault(bankPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		for _, q := range bank.All() {
			fmt.Fprintf(stdout, "%2d. %s\n    keywords: %s\n", q.Index+1, q.Prompt, strings.Join(q.Keywords, ", "))
		}
	case "score":
		if err := scoreCmd.Parse(args[1:]); err != nil {
			return 2
		}
		bank, err := questionbank.LoadOrDefault(bankPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		q, ok := bank.Question(question - 1)
		if !ok {
			fmt.Fprintf(stderr, "question %d out of range 1..%d\n", question, bank.Len())
			return 1
		}
		res := scoring.Evaluate(q, text)
		fmt.Fprintf(stdout, "score: %.1f\nmatched: %s\nmissing: %s\n",
			res.Score, strings.Join(res.Matched, ", "), strings.Join(res.Missing, ", "))
	case "version":
		fmt.Fprintln(stdout, version)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		return 2
	}
	return 0
}
