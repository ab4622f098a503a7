package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hannes/pii-sanitizer/config"
	"github.com/hannes/pii-sanitizer/pii"
	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
	"github.com/hannes/pii-sanitizer/server"
	"github.com/hannes/pii-sanitizer/version"
	"github.com/spf13/cobra"
)

// textFlags are shared by analyze and sanitize
type textFlags struct {
	language string
	entities []string
}

func (f *textFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Language of the text (defaults to the configured language)")
	cmd.Flags().StringSliceVarP(&f.entities, "entities", "e", nil, "Entity types to look for (defaults to all)")
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var flags textFlags
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Detect PII in text and print the entities as JSON",
		Long: `Detect PII in text and print the entities as JSON.
The text is read from standard input when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, service, closeFn, err := prepareText(cmd, *configPath, args, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := service.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"text":     req.Text,
				"entities": results,
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSanitizeCmd(configPath *string) *cobra.Command {
	var flags textFlags
	cmd := &cobra.Command{
		Use:   "sanitize [text]",
		Short: "Replace PII in text with placeholders and print the result as JSON",
		Long: `Replace PII in text with placeholders and print the result as JSON.
The text is read from standard input when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, service, closeFn, err := prepareText(cmd, *configPath, args, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := service.Sanitize(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	flags.register(cmd)
	return cmd
}

func newEntitiesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entity types the configured detectors can report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, closeFn, err := newMaskingService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			for _, e := range service.Analyzer().SupportedEntities() {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of pii-sanitizer.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", config.AppName, version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", version.Commit())
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", version.Date())
		},
	}
}

// newMaskingService builds the detectors named in the configuration without
// an audit log. The returned function closes them.
func newMaskingService(configPath string) (*pii.MaskingService, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	members, _, err := server.BuildDetectors(cfg)
	if err != nil {
		return nil, nil, err
	}
	ensemble := detectors.NewEnsembleDetector(
		time.Duration(cfg.DetectionTimeoutMS)*time.Millisecond, members...)

	srv := server.NewServerWithDetector(cfg, ensemble, nil)
	return srv.MaskingService(), func() { _ = srv.Close() }, nil
}

func prepareText(cmd *cobra.Command, configPath string, args []string, flags textFlags) (pii.AnalyzeRequest, *pii.MaskingService, func(), error) {
	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return pii.AnalyzeRequest{}, nil, nil, err
	}

	service, closeFn, err := newMaskingService(configPath)
	if err != nil {
		return pii.AnalyzeRequest{}, nil, nil, err
	}

	return pii.AnalyzeRequest{
		Text:     text,
		Language: flags.language,
		Entities: flags.entities,
	}, service, closeFn, nil
}

// readText returns the argument, or standard input with one trailing
// newline removed
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read standard input: %w", err)
	}
	text := strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
