package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/parkinsons-variant-viewer/internal/app"
	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/internal/service"
)

// Version information (set at build time)
var version = "dev"

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pvv",
		Short:         "Parkinson's Variant Viewer",
		Long:          "Load patient variants, annotate them with ClinVar and browse the results.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml)")

	cmd.AddCommand(newInitDBCmd(opts))
	cmd.AddCommand(newResetDBCmd(opts))
	cmd.AddCommand(newLoadVCFsCmd(opts))
	cmd.AddCommand(newAnnotateCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newWebCmd(opts))

	return cmd
}

// withApp builds the application for one command and releases it afterwards
func withApp(opts *rootOptions, run func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := app.New(opts.configFile)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, a, args)
	}
}

func newInitDBCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema",
		Long:  "Create the database schema. Refuses to touch an existing SQLite file; use reset-db to wipe it.",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, _ []string) error {
			dbCfg := a.Config.GetDatabaseConfig()
			if dbCfg.Driver == domain.DriverSQLite {
				if _, err := os.Stat(dbCfg.Path); err == nil {
					return fmt.Errorf("database already exists at %s; run 'pvv reset-db' to wipe and recreate it", dbCfg.Path)
				}
			}

			runner, err := a.Migrations(cmd.Context())
			if err != nil {
				return err
			}
			defer runner.Close()

			if err := runner.Up(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database initialised at %s.\n", describeDB(dbCfg))
			return nil
		}),
	}
}

func newResetDBCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop and recreate the database schema",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, _ []string) error {
			dbCfg := a.Config.GetDatabaseConfig()
			fmt.Fprintf(cmd.OutOrStdout(), "WARNING: This will erase all data in %s\n", describeDB(dbCfg))

			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("aborting reset")
				}
			}

			runner, err := a.Migrations(cmd.Context())
			if err != nil {
				return err
			}
			defer runner.Close()

			if err := runner.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database reset at %s.\n", describeDB(dbCfg))
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprint(out, "Type 'yes' to continue: ")
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(answer), "yes"), nil
}

func newLoadVCFsCmd(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "load-vcfs",
		Short: "Load every PatientN.vcf file from a directory into the inputs table",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, _ []string) error {
			if dir == "" {
				dir = a.Config.GetConfig().Storage.VCFDir
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("VCF directory '%s' does not exist", dir)
			}

			store, err := a.Store(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loading VCFs from: %s\n", dir)
			n, err := service.LoadVCFDir(cmd.Context(), dir, store, a.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d variants into the database.\n", n)
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the VCF files (default: storage.vcf_dir)")
	return cmd
}

func newAnnotateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate",
		Short: "Annotate every stored input variant with ClinVar",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, _ []string) error {
			batch, err := a.BatchAnnotator(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Running annotation pipeline... (this may take time)")
			report, err := batch.AnnotateAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Annotation complete: %d processed, %d annotated (%d not in ClinVar), %d skipped, %d failed.\n",
				report.Processed, report.Annotated, report.NotFound, report.Skipped, report.Failed)
			return nil
		}),
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "lookup <hgvs>",
		Short: "Look up one HGVS expression in ClinVar and print the annotation",
		Example: `  pvv lookup "NC_000017.11:g.45983420G>T"
  pvv lookup --format yaml "NC_000004.12:g.89835580C>T"`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			switch format {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}

			annotation, err := a.Annotator().Annotate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), annotation, format)
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

// recordValue flattens one ToRecord cell; ok is false for null
func recordValue(cell interface{}) (string, bool) {
	switch v := cell.(type) {
	case string:
		return v, true
	case *string:
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

func printRecord(out io.Writer, annotation domain.VariantAnnotation, format string) error {
	record := annotation.ToRecord()

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(annotation)
	case "yaml":
		// Mapping node keeps the export column order
		doc := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range domain.RecordColumns {
			value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
			if v, ok := recordValue(record[col]); ok {
				value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
			}
			doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: col}, value)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, col := range domain.RecordColumns {
		value, ok := recordValue(record[col])
		if !ok {
			value = "-"
		}
		fmt.Fprintf(out, "%-22s %s\n", col, value)
	}
	return nil
}

func newWebCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, _ []string) error {
			server, err := a.Server(cmd.Context())
			if err != nil {
				return err
			}
			return server.Start(cmd.Context())
		}),
	}
}

func describeDB(cfg *domain.DatabaseConfig) string {
	if cfg.Driver == domain.DriverSQLite {
		return cfg.Path
	}
	return "the configured Postgres database"
}
