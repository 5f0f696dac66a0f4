package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type ingestOptions struct {
	file  string
	url   string
	title string
}

func newIngestCmd(global *globalOptions) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add lecture materials to the vector index from a JSON file or a web page",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.file == "") == (opts.url == "") {
				return fmt.Errorf("exactly one of --file or --url is required")
			}

			s, err := global.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var docs []types.LectureDocument
			if opts.file != "" {
				docs, err = readMaterials(opts.file)
			} else {
				var doc types.LectureDocument
				doc, err = s.reg.Importer.Fetch(cmd.Context(), opts.url, opts.title)
				docs = []types.LectureDocument{doc}
			}
			if err != nil {
				return err
			}

			ids, err := s.reg.Retrieval.Ingest(cmd.Context(), docs)
			if err != nil {
				return err
			}
			for i, id := range ids {
				fmt.Printf("%s  %s\n", color.CyanString(id), docs[i].Title)
			}
			color.Green("\n✓ Inserted %d document(s)\n", len(ids))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", `JSON file: {"lecture_materials": [{"title": ..., "content": ...}]} or a bare array`)
	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "Web page to import")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Title override for --url")
	return cmd
}

// readMaterials accepts the /insert_lecture/ body or a bare document array.
func readMaterials(path string) ([]types.LectureDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		LectureMaterials []types.LectureDocument `json:"lecture_materials"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.LectureMaterials) > 0 {
		return wrapped.LectureMaterials, nil
	}

	var docs []types.LectureDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s contains no lecture materials", path)
	}
	return docs, nil
}
