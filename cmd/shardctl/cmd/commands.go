// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cmd

import (
	"context"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/spf13/cobra"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/hospital"
	"github.com/clinicnet/shardroute/site"
)

// output is the JSON document every command prints
type output struct {
	OK    bool   `json:"ok"`
	Site  string `json:"site,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
	Value any    `json:"value,omitempty"`
}

type reachability struct {
	Site      string  `json:"site"`
	State     string  `json:"state"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// run opens the service, runs fn and prints its outcome
func run(cmd *cobra.Command, opts *flags, fn func(ctx context.Context, service *hospital.Service) (any, site.ID, error)) error {
	ctx := cmd.Context()
	service, closeService, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = closeService(ctx) }()

	value, at, err := fn(ctx, service)
	out := output{OK: err == nil, Site: at.String(), Value: value}
	if err != nil {
		out.Kind = gerrors.KindOf(err).String()
		out.Error = err.Error()
	}

	if werr := write(cmd.OutOrStdout(), out); werr != nil {
		return werr
	}
	return err
}

func newDetectCommand(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the first reachable site of the preference order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, service *hospital.Service) (any, site.ID, error) {
				res := service.CurrentSite(ctx)
				return nil, res.Site, res.Err
			})
		},
	}
}

func newStatusCommand(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe every site and print its reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, service *hospital.Service) (any, site.ID, error) {
				var sites []reachability
				for _, status := range service.Status(ctx) {
					entry := reachability{
						Site:      status.Site.String(),
						State:     string(status.State),
						LatencyMS: float64(status.Latency.Microseconds()) / 1000,
					}
					if status.Err != nil {
						entry.Error = status.Err.Error()
					}
					sites = append(sites, entry)
				}
				return sites, "", nil
			})
		},
	}
}

func newNextIDCommand(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "next-id <entity>",
		Short: "Print the next free identifier of an entity at the current site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, service *hospital.Service) (any, site.ID, error) {
				res := service.NextID(ctx, entity.Type(args[0]))
				return res.Value, res.Site, res.Err
			})
		},
	}
}

func newListCommand(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list <entity>",
		Short: "List the rows of an entity visible at the current site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, service *hospital.Service) (any, site.ID, error) {
				return rows(ctx, service, args[0], "", false)
			})
		},
	}
}

func newSearchCommand(opts *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <entity> <term>",
		Short: "Search the rows of an entity visible at the current site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, service *hospital.Service) (any, site.ID, error) {
				return rows(ctx, service, args[0], args[1], true)
			})
		},
	}
}

func newWaitCommand(opts *flags) *cobra.Command {
	var (
		attempts int
		initial  time.Duration
		maxDelay time.Duration
	)

	command := &cobra.Command{
		Use:   "wait",
		Short: "Wait until a site becomes reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, service *hospital.Service) (any, site.ID, error) {
				var current site.ID
				retrier := retry.NewRetrier(attempts, initial, maxDelay)
				err := retrier.RunContext(ctx, func(ctx context.Context) error {
					service.Invalidate()
					res := service.CurrentSite(ctx)
					current = res.Value
					return res.Err
				})
				return nil, current, err
			})
		},
	}

	command.Flags().IntVar(&attempts, "attempts", 5, "maximum number of detections")
	command.Flags().DurationVar(&initial, "initial-delay", 200*time.Millisecond, "delay before the second detection")
	command.Flags().DurationVar(&maxDelay, "max-delay", 5*time.Second, "upper bound of the delay between detections")
	return command
}
