package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jrschumacher/complyhub/internal/apiclient"
	"github.com/jrschumacher/complyhub/internal/debug"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/storage"
	"github.com/jrschumacher/complyhub/internal/validation"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Troubleshoot stored auth state",
}

var debugAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Summarise the stored auth token, remember-me flag and rate limit records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		inspector, closeStore, err := newInspector(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		report, err := inspector.Report(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var debugProfileProbeCmd = &cobra.Command{
	Use:   "profile-probe",
	Short: "PUT a JSON body to the auth profile endpoint with the stored token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		body, _ := cmd.Flags().GetString("body")

		probe := validation.ProfileProbe{Body: body}
		if err := probe.Validate(); err != nil {
			return err
		}
		if !json.Valid([]byte(body)) {
			return errors.New("body must be valid JSON")
		}

		inspector, closeStore, err := newInspector(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		result, err := inspector.ProbeProfile(cmd.Context(), json.RawMessage(body))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

func newInspector(cmd *cobra.Command) (*debug.Inspector, func(), error) {
	store, err := storage.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageDriver, err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}
	return debug.NewInspector(store, apiclient.New(cfg.APIEndpoint), nil), closeStore, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugAuthCmd, debugProfileProbeCmd)

	debugProfileProbeCmd.Flags().String("body", `{"firstName":"Debug","lastName":"Probe"}`, "JSON body to send")
}
