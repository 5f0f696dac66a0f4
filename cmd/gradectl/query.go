package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRetrieveCmd(global *globalOptions) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "retrieve <prompt>",
		Short: "Show the lecture materials closest to a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := global.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.reg.Retrieval.Retrieve(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			if !result.Found {
				color.Yellow("No documents found")
				return nil
			}
			for i, doc := range result.Documents {
				color.Cyan("[%d]", i+1)
				fmt.Println(doc)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of documents (0 uses the configured default)")
	return cmd
}

func newVideosCmd(global *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List stored lecture recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := global.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			videos, err := s.reg.Metadata.ListVideos(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				color.Yellow("No videos stored")
				return nil
			}
			for _, v := range videos {
				fmt.Printf("%s  %-8s %10d  %s  %s\n",
					color.CyanString(v.Key), v.Source, v.Size,
					v.CreatedAt.Format("2006-01-02 15:04"), v.OriginalName)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of videos")
	return cmd
}
