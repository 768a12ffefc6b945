package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/logging"
	"wayfarer/internal/server"
)

func newAnalyzeCommand(cli *CLI) *cobra.Command {
	var signals signalFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse the current context and print insights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			env, insights, err := cli.resolveContext(cmd, &signals)
			if err != nil {
				return err
			}
			if cli.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"environment": env, "insights": insights})
			}
			renderEnvironment(cmd.OutOrStdout(), env, insights)
			return nil
		},
	}
	signals.register(cmd)
	return cmd
}

func newAdaptCommand(cli *CLI) *cobra.Command {
	var (
		signals signalFlags
		prefs   domain.Preferences
		diff    bool
	)
	cmd := &cobra.Command{
		Use:   "adapt <story-id>",
		Short: "Adapt one story to the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			story, ok := cli.store.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", wferrors.ErrContentNotFound, args[0])
			}
			env, insights, err := cli.resolveContext(cmd, &signals)
			if err != nil {
				return err
			}
			adapted, ok := cli.engine.Adapt(cmd.Context(), story.ID, env, insights, prefs)
			if !ok {
				return fmt.Errorf("%w: %s", wferrors.ErrContentNotFound, story.ID)
			}

			out := cmd.OutOrStdout()
			if cli.jsonOutput {
				return writeJSON(out, adapted)
			}
			renderAdapted(out, story, adapted)
			if diff {
				fmt.Fprintln(out)
				fmt.Fprintln(out, bold("Changes"))
				renderDiff(out, story.Text, adapted.Text)
			}
			return nil
		},
	}
	signals.register(cmd)
	cmd.Flags().BoolVar(&prefs.Brief, "brief", false, "prefer shorter content")
	cmd.Flags().BoolVar(&prefs.Detailed, "detailed", false, "prefer fuller content")
	cmd.Flags().BoolVar(&prefs.Interactive, "interactive", false, "prefer interactive content")
	cmd.Flags().BoolVar(&diff, "diff", false, "show a word diff against the original text")
	return cmd
}

func newRecommendCommand(cli *CLI) *cobra.Command {
	var (
		signals signalFlags
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank library stories for the current context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			env, insights, err := cli.resolveContext(cmd, &signals)
			if err != nil {
				return err
			}
			recs := cli.engine.Recommend(cmd.Context(), env, insights, limit)

			out := cmd.OutOrStdout()
			if cli.jsonOutput {
				return writeJSON(out, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, yellow("nothing relevant right now"))
				return nil
			}
			for i, r := range recs {
				fmt.Fprintf(out, "%d. %s %s %s\n", i+1, bold(r.Content.Title), cyan(string(r.Priority)), gray(string(r.Timing)))
				field(out, "relevance", fmt.Sprintf("%.2f", r.Relevance))
				field(out, "engagement", fmt.Sprintf("%.2f", r.EstimatedEngagement))
				field(out, "format", fmt.Sprintf("%s, %s", r.Adapted.Format, r.Adapted.Length))
				field(out, "why", r.Reason)
			}
			return nil
		},
	}
	signals.register(cmd)
	cmd.Flags().IntVarP(&limit, "max", "n", 5, "maximum results (0 for all)")
	return cmd
}

func newServeCommand(cli *CLI) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.initialize(cmd); err != nil {
				return err
			}
			cfg := cli.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			srv := server.New(cli.engine, cli.store, cfg,
				server.WithGatherer(cli.registry),
				server.WithLogger(logging.FromObservabilityWithComponent(cli.obs.Logger, "http")),
				server.WithClock(cli.now),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d stories)\n", green("serving on"), cfg.Addr, cli.store.Len())
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (c *CLI) resolveContext(cmd *cobra.Command, signals *signalFlags) (domain.ContextualEnvironment, domain.ContextualInsights, error) {
	sample, movement, reading, err := signals.resolve(c.now())
	if err != nil {
		return domain.ContextualEnvironment{}, domain.ContextualInsights{}, err
	}
	env := c.engine.AnalyzeContext(cmd.Context(), sample, movement, reading)
	return env, c.engine.GenerateInsights(cmd.Context(), env), nil
}
