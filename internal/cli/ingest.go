package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mnemo-ai/mnemo/internal/models"
	"github.com/mnemo-ai/mnemo/internal/service"
)

var (
	ingestType     string
	ingestInsights bool
	ingestPlain    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <files...>",
	Short: "Chunk and index documents",
	Long: `Ingest reads documents, chunks them with overlap-preserving semantic
boundaries and indexes the chunks in the vector store.

The document type is inferred from the file extension (pdf, epub, txt,
docx) unless --type is given. With --insights, file-derived memories
(insights, anchors, motifs) are extracted and stored in the ledger.

Examples:
  mnemo ingest notes.txt chapters/*.txt
  mnemo ingest --type pdf extracted-book.txt
  mnemo ingest --insights essay.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "document type override (pdf, epub, txt, docx)")
	ingestCmd.Flags().BoolVar(&ingestInsights, "insights", false, "extract file insights into the memory ledger")
	ingestCmd.Flags().BoolVar(&ingestPlain, "plain", false, "plain line output instead of the progress UI")
}

func runIngest(cmd *cobra.Command, args []string) error {
	files := make([]service.FileInput, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docType, err := documentType(path)
		if err != nil {
			return err
		}
		files = append(files, service.FileInput{
			Name:    filepath.Base(path),
			Type:    docType,
			Content: string(content),
		})
	}

	if ingestInsights {
		engine.Ingest = engine.Ingest.WithInsights()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var results []service.FileProcessingResult
	if ingestPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		results = engine.Ingest.ProcessFiles(ctx, userID, sessionID, files, service.ProcessOptions{
			OnFileDone: func(done, total int, res service.FileProcessingResult) {
				if res.Err != nil {
					fmt.Printf("[%d/%d] %s: %v\n", done, total, res.FileName, res.Err)
				} else {
					fmt.Printf("[%d/%d] %s: %d chunks\n", done, total, res.FileName, res.ChunkCount)
				}
			},
		})
	} else {
		var err error
		results, err = runIngestProgress(len(files), cancel, func(onFile func(int, int, service.FileProcessingResult)) []service.FileProcessingResult {
			return engine.Ingest.ProcessFiles(ctx, userID, sessionID, files, service.ProcessOptions{OnFileDone: onFile})
		})
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed == len(results) && len(results) > 0 {
		return fmt.Errorf("all %d files failed", failed)
	}
	return nil
}

// documentType infers the preprocessing mode from the flag or the file
// extension, defaulting to plain text.
func documentType(path string) (models.DocumentType, error) {
	if ingestType != "" {
		switch t := models.DocumentType(ingestType); t {
		case models.DocumentPDF, models.DocumentEPUB, models.DocumentTXT, models.DocumentDOCX:
			return t, nil
		default:
			return "", fmt.Errorf("unknown document type %q", ingestType)
		}
	}
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "pdf":
		return models.DocumentPDF, nil
	case "epub":
		return models.DocumentEPUB, nil
	case "docx":
		return models.DocumentDOCX, nil
	default:
		return models.DocumentTXT, nil
	}
}
