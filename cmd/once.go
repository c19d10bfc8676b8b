package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/overall-progress/internal/client"
	"github.com/JakeFAU/overall-progress/internal/dom"
	"github.com/JakeFAU/overall-progress/internal/indicator"
	"github.com/JakeFAU/overall-progress/internal/poller"
)

type onceResult struct {
	URL      string          `json:"url"`
	Snapshot poller.Snapshot `json:"snapshot"`
	View     indicator.View  `json:"view"`
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Poll a single time and print the rendered indicator",
		Args:  cobra.NoArgs,
		RunE:  runOnceCommand,
	}
}

func runOnceCommand(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	fetcher, err := client.New(client.Config{
		BaseURL:       e.cfg.Poller.BaseURL,
		Path:          e.cfg.Poller.Path,
		Timeout:       e.cfg.ClientTimeout(),
		ActivityField: e.cfg.Poller.ActivityField,
	}, nil, e.logger.Named("client"))
	if err != nil {
		return fmt.Errorf("client init failed: %w", err)
	}

	doc := dom.NewIndicatorPage()
	p, err := poller.New(poller.Config{Interval: e.cfg.Poller.Interval}, fetcher, doc,
		poller.WithLogger(e.logger.Named("poller")))
	if err != nil {
		return fmt.Errorf("poller init failed: %w", err)
	}
	if err := p.PollOnce(cmd.Context()); err != nil {
		return err
	}

	snap, _ := p.Snapshot()
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(onceResult{URL: fetcher.URL(), Snapshot: snap, View: indicator.Read(doc)}); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
