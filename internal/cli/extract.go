package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/extraction"
	"github.com/voterlookup/epic-extractor/internal/handlers/validator"
	"github.com/voterlookup/epic-extractor/internal/orchestrator"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/internal/store"
)

type ExtractOptions struct {
	GlobalOptions

	StateCode   string
	MaxAttempts int
	Save        bool

	out       io.Writer
	extractor orchestrator.Extractor
	store     store.Store
}

type extractReport struct {
	EpicNumber string    `json:"epic_number"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	Outcome    string    `json:"last_outcome,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Saved      bool      `json:"saved"`
	Voter      api.Voter `json:"voter,omitempty"`
}

func DefaultExtractOptions() *ExtractOptions {
	return &ExtractOptions{
		GlobalOptions: DefaultGlobalOptions(),
		out:           os.Stdout,
	}
}

func NewCmdExtract() *cobra.Command {
	o := DefaultExtractOptions()
	cmd := &cobra.Command{
		Use:   "extract EPIC_NUMBER",
		Short: "Look up a single voter on the portal and print the record.",
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

func (o *ExtractOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.StateCode, "state-code", "s", o.StateCode, "State code to search in. Defaults to the configured region.")
	fs.IntVar(&o.MaxAttempts, "max-attempts", o.MaxAttempts, "Number of captcha attempts. Defaults to the configured budget.")
	fs.BoolVar(&o.Save, "save", o.Save, "Store the record when the lookup succeeds.")
}

func (o *ExtractOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}

	v := validator.NewValidator()
	v.Register(validator.NewExtractionValidationRules()...)
	return v.Struct(api.ExtractSingleRequest{EpicNumber: strings.TrimSpace(args[0]), StateCode: o.StateCode})
}

func (o *ExtractOptions) Run(ctx context.Context, args []string) error {
	cfg := o.Config()
	identifier := strings.TrimSpace(args[0])

	region := o.StateCode
	if region == "" {
		region = cfg.Extraction.DefaultRegion
	}
	maxAttempts := o.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = cfg.Extraction.MaxAttempts
	}

	if o.extractor == nil {
		_, engine, err := NewEngine(cfg)
		if err != nil {
			return err
		}
		o.extractor = engine
	}

	result := o.extractor.Extract(ctx, identifier, region, maxAttempts)
	report := extractReport{
		EpicNumber: identifier,
		Status:     string(result.Status),
		Attempts:   result.AttemptsUsed,
		Outcome:    string(result.LastOutcome),
		Reason:     result.Reason,
	}

	if result.Succeeded() && result.Voter != nil {
		report.Voter = mappers.VoterToApi(*result.Voter)
		if o.Save {
			saved, err := o.save(ctx, result)
			if err != nil {
				return err
			}
			report.Saved = saved
		}
	}

	if err := printOutput(o.out, o.Output, report); err != nil {
		return err
	}
	if !result.Succeeded() {
		return fmt.Errorf("extracting %s: %s", identifier, result.Reason)
	}
	return nil
}

func (o *ExtractOptions) save(ctx context.Context, result extraction.Result) (bool, error) {
	st := o.store
	if st == nil {
		opened, err := OpenStore(ctx, o.Config())
		if err != nil {
			return false, err
		}
		defer opened.Close()
		st = opened
	}

	_, created, err := st.Voter().CreateIfAbsent(ctx, *result.Voter)
	if err != nil {
		return false, fmt.Errorf("saving voter %s: %w", result.Identifier, err)
	}
	return created, nil
}
