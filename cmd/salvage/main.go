// Command salvage runs the JSON extraction core over a saved AI response.
//
//	salvage response.txt
//	pbpaste | salvage --strategy balanced --repair
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"neurolearn-backend/internal/extract"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		strategy    string
		repair      bool
		payloadOnly bool
	)

	cmd := &cobra.Command{
		Use:   "salvage [file]",
		Short: "Extract and decode the JSON value embedded in an AI response",
		Long: `salvage reads a raw model response from a file, or stdin when no file is
given, locates the JSON value inside it and prints it indented.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := extract.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			opts := []extract.Option{extract.WithStrategy(s)}
			if repair {
				opts = append(opts, extract.WithRepair())
			}

			raw, err := readInput(stdin, args)
			if err != nil {
				return err
			}

			if payloadOnly {
				payload, err := extract.Span(raw, opts...)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout, payload)
				return err
			}

			value, err := extract.ExtractAndDecode[any](raw, opts...)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "greedy", "span strategy: greedy or balanced")
	cmd.Flags().BoolVar(&repair, "repair", false, "run malformed payloads through jsonrepair once")
	cmd.Flags().BoolVar(&payloadOnly, "payload", false, "print the extracted payload without decoding")

	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, extract.ErrExtraction):
		return "extraction error: " + err.Error()
	case errors.Is(err, extract.ErrDecode):
		return "decode error: " + err.Error()
	case errors.Is(err, extract.ErrShape):
		return "shape error: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}
