package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi/grpcweb-bridge/services/entity"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/knowledge"
	"github.com/yhonda-ohishi/grpcweb-bridge/services/llm"
)

var askFlags struct {
	Collection string
	TopK       int
	Provider   string
	Entity     string
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the knowledge base through the completion service",
	Long: `Search the knowledge service for passages, then ask the completion
service to answer with them as context. With --simulate nothing leaves the
process and canned responses are returned.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := strings.Join(args, " ")
		c := newHTTPClients(nil)

		var passages []string
		if askFlags.Entity != "" {
			desc, err := c.entity.Describe(ctx, entity.DescribeRequest{Entity: askFlags.Entity})
			if err != nil {
				return describeError(err)
			}
			passages = append(passages, fmt.Sprintf("%s: %s", desc.Entity, desc.Description))
		}

		found, err := c.knowledge.Search(ctx, knowledge.SearchRequest{
			Collection: askFlags.Collection,
			Query:      question,
			TopK:       askFlags.TopK,
		})
		if err != nil {
			return describeError(err)
		}
		for _, chunk := range found.Chunks {
			passages = append(passages, chunk.Text)
		}
		logger.Debug().Int("passages", len(passages)).Msg("retrieved context")

		answer, err := c.llm.Complete(ctx, llm.CompleteRequest{
			Provider: askFlags.Provider,
			Prompt:   question,
			Context:  passages,
		})
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), answer)
	},
}

func init() {
	askCmd.Flags().StringVar(&askFlags.Collection, "collection", "docs", "knowledge collection to search")
	askCmd.Flags().IntVar(&askFlags.TopK, "top-k", knowledge.DefaultTopK, "number of passages to retrieve")
	askCmd.Flags().StringVar(&askFlags.Provider, "provider", "", "completion provider (server default when empty)")
	askCmd.Flags().StringVar(&askFlags.Entity, "entity", "", "also include the description of this business entity")
}
