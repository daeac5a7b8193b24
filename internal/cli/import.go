package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/voterlookup/epic-extractor/internal/orchestrator"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/internal/spreadsheet"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"go.uber.org/zap"
)

// ImportOptions runs an upload job in the foreground. The job is recorded like
// one submitted over the API so its ledger and logs can be inspected later.
type ImportOptions struct {
	GlobalOptions

	Column    string
	StateCode string

	out       io.Writer
	extractor orchestrator.Extractor
	store     store.Store
}

func DefaultImportOptions() *ImportOptions {
	return &ImportOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Column:        spreadsheet.DefaultColumn,
		out:           os.Stdout,
	}
}

func NewCmdImport() *cobra.Command {
	o := DefaultImportOptions()
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Extract every EPIC number listed in a spreadsheet.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			defer o.Close()
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ImportOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Column, "column", o.Column, "Header of the column holding the EPIC numbers.")
	fs.StringVarP(&o.StateCode, "state-code", "s", o.StateCode, "State code to search in. Defaults to the configured region.")
}

func (o *ImportOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !spreadsheet.Supported(args[0]) {
		return spreadsheet.ErrUnsupportedFormat
	}
	return nil
}

func (o *ImportOptions) Run(ctx context.Context, args []string) error {
	cfg := o.Config()
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	filename := filepath.Base(path)
	identifiers, err := spreadsheet.ParseIdentifiers(filename, content, o.Column)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}

	st := o.store
	if st == nil {
		opened, err := OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer opened.Close()
		st = opened
	}

	if o.extractor == nil {
		_, engine, err := NewEngine(cfg)
		if err != nil {
			return err
		}
		o.extractor = engine
	}

	region := o.StateCode
	if region == "" {
		region = cfg.Extraction.DefaultRegion
	}

	job := model.NewJob("Excel upload - "+filename, model.JobTypeExcel, region, len(identifiers))
	size := int64(len(content))
	job.FileName = &filename
	job.FileSize = &size
	if _, err := st.Job().Create(ctx, *job); err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	zap.S().Named("import").Infow("running job", "job_id", job.ID, "total", len(identifiers))

	runner := orchestrator.New(st, o.extractor,
		orchestrator.WithMaxAttempts(cfg.Extraction.MaxAttempts),
		orchestrator.WithRecordDelay(cfg.Extraction.RecordDelay.Duration()),
	)
	runErr := runner.Run(ctx, job.ID, identifiers, region)

	// the ledger is printed even when the run was interrupted
	finished, err := st.Job().Get(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return fmt.Errorf("reading job %s: %w", job.ID, err)
	}
	if err := printOutput(o.out, o.Output, mappers.JobToApi(*finished)); err != nil {
		return err
	}
	return runErr
}
