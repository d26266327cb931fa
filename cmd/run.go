package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"searchlens/coordinator"

	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <url>",
	Short: "Summarize one page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		result := a.coordinator.Summary(cmd.Context(), args[0])
		if !result.Success && !outputJSON {
			return errors.New(result.Error)
		}
		return writeResult(cmd.OutOrStdout(), result, result.Summary)
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics [file]",
	Short: "Suggest related search topics for page text read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		text, err := io.ReadAll(r)
		if err != nil {
			return err
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		result := a.coordinator.Topics(cmd.Context(), string(text))
		if !result.Success && !outputJSON {
			return errors.New(result.Error)
		}
		var b strings.Builder
		for _, t := range result.Topics {
			fmt.Fprintf(&b, "%s\t%s\n", t.Text, t.SearchURL)
		}
		return writeResult(cmd.OutOrStdout(), result, strings.TrimSuffix(b.String(), "\n"))
	},
}

var expandLocation string

var expandCmd = &cobra.Command{
	Use:   "expand <query>",
	Short: "Refine a search query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		req := coordinator.ExpandRequest{
			Query:    strings.Join(args, " "),
			Location: expandLocation,
		}
		result := a.coordinator.Expand(cmd.Context(), req)
		if result.Error != "" && !outputJSON {
			return errors.New(result.Error)
		}
		return writeResult(cmd.OutOrStdout(), result, result.Expansions)
	},
}

func init() {
	expandCmd.Flags().StringVar(&expandLocation, "location", "", "Location used for local queries, e.g. \"Lisbon, Portugal\"")
}

func writeResult(w io.Writer, value any, text string) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
