package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yangwenmai/studydo/internal/config"
	"github.com/yangwenmai/studydo/internal/ingest"
	"github.com/yangwenmai/studydo/internal/model"
	"github.com/yangwenmai/studydo/internal/store"
)

var (
	importSpaceID   string
	importSpaceName string
)

var importCmd = &cobra.Command{
	Use:   "import [files or URLs...]",
	Short: "Import documents into a space",
	Long: `Import loads documents into a space. Each argument is either a local file
path or an http(s) URL; URLs are fetched and reduced to their readable
content. Use --space to target an existing space, or --new-space to create
one first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args)
	},
}

func init() {
	importCmd.Flags().StringVar(&importSpaceID, "space", "", "id of the space to import into")
	importCmd.Flags().StringVar(&importSpaceName, "new-space", "", "create a space with this name and import into it")
	rootCmd.AddCommand(importCmd)
}

func runImport(args []string) error {
	if importSpaceID == "" && importSpaceName == "" {
		return fmt.Errorf("either --space or --new-space is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := store.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	ctx := context.Background()
	spaceID := importSpaceID
	if spaceID == "" {
		sp := model.NewSpace(uuid.NewString(), importSpaceName, "", "")
		if err := st.CreateSpace(ctx, sp); err != nil {
			return fmt.Errorf("create space: %w", err)
		}
		if err := st.SeedBlocks(ctx, sp.ID, model.TemplateKinds(sp.Template)); err != nil {
			return fmt.Errorf("seed blocks: %w", err)
		}
		spaceID = sp.ID
		fmt.Printf("created space %s (%s)\n", sp.Name, sp.ID)
	} else if _, err := st.GetSpace(ctx, spaceID); err != nil {
		return fmt.Errorf("space %s: %w", spaceID, err)
	}

	in := ingest.New(st, logger)
	for _, arg := range args {
		var (
			doc model.Document
			err error
		)
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			doc, err = in.AddURL(ctx, spaceID, arg)
		} else {
			doc, err = in.AddFile(ctx, spaceID, arg)
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", arg, err)
		}
		fmt.Printf("imported %s (%s, %s)\n", doc.Name, doc.ID, doc.ExtractionStatus)
	}
	return nil
}
