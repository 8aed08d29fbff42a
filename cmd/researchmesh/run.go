package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/researchmesh"
	"github.com/hupe1980/researchmesh/core"
)

// Output formats of the run command.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var errClarificationRequired = errors.New("research needs clarification but no answer was given")

// researcher is the part of the façade the run command drives.
type researcher interface {
	RunSync(ctx context.Context, sessionID, text string) (*researchmesh.Result, error)
}

// output is the machine readable result of a run.
type output struct {
	SessionID          string `json:"session_id" yaml:"session_id"`
	RunID              string `json:"run_id" yaml:"run_id"`
	NeedsClarification bool   `json:"needs_clarification" yaml:"needs_clarification"`
	Question           string `json:"question,omitempty" yaml:"question,omitempty"`
	ResearchBrief      string `json:"research_brief,omitempty" yaml:"research_brief,omitempty"`
	Report             string `json:"report,omitempty" yaml:"report,omitempty"`
}

var runCmd = &cobra.Command{
	Use:   "run <question>",
	Short: "Research a question and print the report",
	Long: `Runs the research pipeline for a question. When the question is ambiguous
the clarifying question is printed and the answer is read from stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		sessionID, _ := cmd.Flags().GetString("session")
		maxTurns, _ := cmd.Flags().GetInt("max-clarifications")

		switch format {
		case formatText, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown format %q", format)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		mesh, err := researchmesh.NewFromConfig(cfg)
		if err != nil {
			return err
		}

		if sessionID == "" {
			sessionID = core.NewID()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// Keep stdout machine readable for json and yaml.
		prompt := cmd.OutOrStdout()
		if format != formatText {
			prompt = cmd.ErrOrStderr()
		}

		res, err := converse(ctx, mesh, sessionID, strings.Join(args, " "), cmd.InOrStdin(), prompt, maxTurns)
		if err != nil && !errors.Is(err, errClarificationRequired) {
			return err
		}

		if werr := writeResult(cmd.OutOrStdout(), sessionID, res, format, markdownRenderer(cmd.OutOrStdout())); werr != nil {
			return werr
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("format", "f", formatText, "Output format: text, json or yaml")
	runCmd.Flags().StringP("session", "s", "", "Session id to continue (default: a new session)")
	runCmd.Flags().Int("max-clarifications", 3, "Maximum number of clarifying questions to answer")
}

// converse runs the question and answers clarifying questions from in until
// the report is written, the answers run out or maxTurns is reached.
func converse(ctx context.Context, r researcher, sessionID, question string, in io.Reader, prompt io.Writer, maxTurns int) (*researchmesh.Result, error) {
	reader := bufio.NewReader(in)

	res, err := r.RunSync(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}

	for turn := 0; res.NeedsClarification; turn++ {
		if turn >= maxTurns {
			return res, errClarificationRequired
		}

		fmt.Fprintf(prompt, "%s\n> ", res.Question)

		answer, readErr := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)

		if answer == "" {
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				return res, readErr
			}

			return res, errClarificationRequired
		}

		res, err = r.RunSync(ctx, sessionID, answer)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

func writeResult(w io.Writer, sessionID string, res *researchmesh.Result, format string, render func(string) (string, error)) error {
	out := output{
		SessionID:          sessionID,
		RunID:              res.RunID,
		NeedsClarification: res.NeedsClarification,
		Question:           res.Question,
		ResearchBrief:      res.ResearchBrief,
		Report:             res.FinalReport,
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		return enc.Encode(out)
	}

	if out.NeedsClarification {
		_, err := fmt.Fprintf(w, "Clarification needed: %s\n", out.Question)
		return err
	}

	text, err := render(out.Report)
	if err != nil {
		text = out.Report
	}

	_, err = fmt.Fprintln(w, text)

	return err
}

// markdownRenderer renders with glamour when w is a terminal and passes the
// markdown through otherwise.
func markdownRenderer(w io.Writer) func(string) (string, error) {
	plain := func(s string) (string, error) { return s, nil }

	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		return plain
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return plain
	}

	return r.Render
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}
