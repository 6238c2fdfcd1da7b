package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi/grpcweb-bridge/peer"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/entity"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/knowledge"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/llm"
	"github.com/yhonda-ohishi/grpcweb-bridge/transport"
)

var loopbackFlags struct {
	ConnectTimeout time.Duration
	Entity         string
}

var loopbackCmd = &cobra.Command{
	Use:   "loopback <question>",
	Short: "Run the services over an in-process WebRTC DataChannel pair",
	Long: `Connect two WebRTC peers inside this process, serve the services on
one end of the DataChannel and call them from the other. Useful to check
that the DataChannel transport works on this host.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connectCtx, cancel := context.WithTimeout(cmd.Context(), loopbackFlags.ConnectTimeout)
		defer cancel()

		pair, err := peer.Loopback(connectCtx, peer.Config{Logger: logger})
		if err != nil {
			return err
		}
		defer pair.Close()
		logger.Info().Str("label", pair.Client.Label()).Msg("data channel open")

		mux, store := newServiceMux(nil)
		if err := seedDemo(cmd.Context(), store); err != nil {
			return err
		}
		srv := mux.ServeDataChannel(pair.Server)
		defer srv.Close()

		rt := transport.NewDataChannel(pair.Client, transport.WithLogger(logger))
		defer rt.Close()

		// The channel is the endpoint, so always call live.
		settings.SetSimulated(false)
		c := newClients(rt, nil)

		ctx := cmd.Context()
		desc, err := c.entity.Describe(ctx, entity.DescribeRequest{Entity: loopbackFlags.Entity, Count: 2})
		if err != nil {
			return describeError(err)
		}
		found, err := c.knowledge.Search(ctx, knowledge.SearchRequest{Collection: "docs", Query: args[0]})
		if err != nil {
			return describeError(err)
		}

		passages := []string{desc.Description}
		for _, chunk := range found.Chunks {
			passages = append(passages, chunk.Text)
		}
		answer, err := c.llm.Complete(ctx, llm.CompleteRequest{Prompt: args[0], Context: passages})
		if err != nil {
			return describeError(err)
		}

		return printJSON(cmd.OutOrStdout(), map[string]any{
			"entity":   desc,
			"passages": found.Chunks,
			"answer":   answer,
		})
	},
}

func init() {
	loopbackCmd.Flags().DurationVar(&loopbackFlags.ConnectTimeout, "connect-timeout", 30*time.Second, "time allowed for ICE and DTLS setup")
	loopbackCmd.Flags().StringVar(&loopbackFlags.Entity, "entity", "order", "business entity to describe")
}
