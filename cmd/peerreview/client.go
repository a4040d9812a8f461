package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/udovin/peerreview/internal/api"
)

var ClientCmd = cobra.Command{
	Use:   "client",
	Short: "Performs requests to privileged API",
}

func init() {
	// Phases.
	openPhaseCmd := cobra.Command{
		Use:  "open-phase",
		RunE: wrapClientMain(openPhaseMain),
	}
	openPhaseCmd.Flags().Duration("duration", time.Hour, "Duration of review phase")
	ClientCmd.AddCommand(&openPhaseCmd)
	//
	ClientCmd.AddCommand(&cobra.Command{
		Use:  "close-phase",
		RunE: wrapClientMain(closePhaseMain),
	})
	//
	ClientCmd.AddCommand(&cobra.Command{
		Use:  "phase",
		RunE: wrapClientMain(phaseMain),
	})
	// Assignments.
	assignCmd := cobra.Command{
		Use:  "assign <problem>",
		Args: cobra.ExactArgs(1),
		RunE: wrapClientMain(assignMain),
	}
	assignCmd.Flags().Int("per-reviewer", 0, "Amount of reviews per participant")
	ClientCmd.AddCommand(&assignCmd)
}

func openPhaseMain(ctx *clientContext) error {
	duration := must(ctx.Cmd.Flags().GetDuration("duration"))
	phase, err := ctx.Client.OpenPhase(context.Background(), api.OpenPhaseForm{
		Deadline: time.Now().Add(duration).Unix(),
	})
	if err != nil {
		return fmt.Errorf("unable to open phase: %w", err)
	}
	return printJSON(phase)
}

func closePhaseMain(ctx *clientContext) error {
	phase, err := ctx.Client.ClosePhase(context.Background())
	if err != nil {
		return fmt.Errorf("unable to close phase: %w", err)
	}
	return printJSON(phase)
}

func phaseMain(ctx *clientContext) error {
	phase, err := ctx.Client.ObservePhase(context.Background())
	if err != nil {
		return fmt.Errorf("unable to observe phase: %w", err)
	}
	return printJSON(phase)
}

func assignMain(ctx *clientContext) error {
	problemID, err := strconv.ParseInt(ctx.Args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid problem ID: %w", err)
	}
	perReviewer := must(ctx.Cmd.Flags().GetInt("per-reviewer"))
	assignments, err := ctx.Client.AssignReviews(
		context.Background(), problemID,
		api.AssignReviewsForm{PerReviewer: perReviewer},
	)
	if err != nil {
		return fmt.Errorf("unable to assign reviews: %w", err)
	}
	return printJSON(assignments)
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

type clientContext struct {
	Cmd    *cobra.Command
	Args   []string
	Client *api.Client
}

func wrapClientMain(fn func(*clientContext) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := clientContext{
			Cmd:  cmd,
			Args: args,
		}
		config, err := getConfig(cmd)
		if err != nil {
			return err
		}
		if config.SocketFile == "" {
			return fmt.Errorf("socket_file is not configured")
		}
		transport := http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var dialer net.Dialer
				return dialer.DialContext(ctx, "unix", config.SocketFile)
			},
		}
		ctx.Client = api.NewClient("http://server/socket", api.WithTransport(&transport))
		return fn(&ctx)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
