package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"venue-backend/config"
	"venue-backend/models"
	"venue-backend/services"
)

func newStateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Export, import or seed the stored document",
	}
	cmd.AddCommand(newStateExportCommand(opts))
	cmd.AddCommand(newStateImportCommand(opts))
	cmd.AddCommand(newStateSeedCommand(opts))
	return cmd
}

func newStateExportCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.database()
			if err != nil {
				return err
			}
			snap, err := services.NewDocumentService(db, opts.log, opts.cfg.QuoteScope).Load(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

// readDocumentFile accepts either a bare document or an export envelope.
func readDocumentFile(path string) (models.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}
	var envelope struct {
		Document *models.Document `json:"document"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return models.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if envelope.Document != nil {
		return *envelope.Document, nil
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func newStateImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored document with a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocumentFile(args[0])
			if err != nil {
				return err
			}
			db, err := opts.database()
			if err != nil {
				return err
			}
			res, err := services.NewDocumentService(db, opts.log, opts.cfg.QuoteScope).Save(cmd.Context(), doc)
			if err != nil {
				return err
			}
			for eventID, code := range res.ReassignedCodes {
				fmt.Fprintf(cmd.OutOrStdout(), "event %s: quote number %s\n", eventID, code)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported revision %d\n", res.Revision)
			return nil
		},
	}
}

func newStateSeedCommand(opts *rootOptions) *cobra.Command {
	var (
		file  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the bootstrap document when nothing is stored yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = opts.cfg.BootstrapFile
			}
			doc, err := config.LoadBootstrap(file)
			if err != nil {
				return err
			}
			db, err := opts.database()
			if err != nil {
				return err
			}
			svc := services.NewDocumentService(db, opts.log, opts.cfg.QuoteScope)

			rev, err := svc.Revision(cmd.Context())
			switch {
			case err == nil && !force:
				opts.log.Info("document already populated, seed skipped", zap.Int64("revision", rev))
				return nil
			case err != nil && !errors.Is(err, services.ErrDocumentNotFound):
				return err
			}

			res, err := svc.Save(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded revision %d\n", res.Revision)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "bootstrap YAML file (defaults to BOOTSTRAP_FILE)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an already populated document")
	return cmd
}
