package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voicerelay/voicerelay/pkg/knowledge"
)

func newInitKBCmd() *cobra.Command {
	var documentsDir string
	var outFile string
	var model string

	cmd := &cobra.Command{
		Use:   "init-kb",
		Short: "Embed a directory of documents into a knowledge base file",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("OPENAI_API_KEY must be set to compute embeddings")
			}

			store := knowledge.NewStore(knowledge.NewOpenAIEmbedder(apiKey, model))
			n, err := knowledge.IngestDir(cmd.Context(), store, documentsDir)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no .txt or .json documents found in %s", documentsDir)
			}
			if err := store.SaveFile(outFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "embedded %d documents into %s\n", n, outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&documentsDir, "documents", "./documents", "directory of .txt and .json documents to embed")
	cmd.Flags().StringVar(&outFile, "out", "knowledge.json", "output knowledge base file")
	cmd.Flags().StringVar(&model, "embedding-model", knowledge.DefaultEmbeddingModel, "embedding model")
	return cmd
}
