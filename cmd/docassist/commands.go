package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docassist/internal/app"
	"docassist/internal/tui"
)

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		state := a.Documents.State()
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		}

		if len(state.Documents) == 0 {
			fmt.Fprintln(out, "No documents uploaded.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILENAME\tFILE ID\tUPLOADED")
		for _, doc := range state.Documents {
			fmt.Fprintf(w, "%s\t%s\t%s\n", doc.Filename, doc.FileID, doc.UploadedAt.Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d documents, vector store %s\n", len(state.Documents), state.VectorStore())
		return nil
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files and index them for the assistant",
	Long: `Upload files and index them for the assistant.

Examples:
  docassist docs upload ./reports/*.pdf
  docassist docs upload summary.txt notes.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]app.UploadFile, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			files = append(files, app.UploadFile{Name: filepath.Base(path), Data: data})
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		printStep("Uploading %d files", len(files))
		result, err := a.Documents.UploadAndAttach(cmd.Context(), files)
		if result != nil {
			for _, failed := range result.Failed {
				printWarning("%s skipped: %s", failed.Name, failed.Reason)
			}
		}
		if err != nil {
			return err
		}
		for _, doc := range result.Documents {
			printSuccess("%s indexed as %s", doc.Filename, doc.FileID)
		}
		printStatus("Vector store", "%s", result.VectorStoreID)
		return nil
	},
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <file_id>",
	Short: "Delete one document remotely and from the local records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Documents.RemoveDocument(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Removed %s", args[0])
		return nil
	},
}

var docsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget every recorded document and the vector store binding",
	RunE: func(cmd *cobra.Command, args []string) error {
		purge, _ := cmd.Flags().GetBool("purge-remote")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Documents.ResetAll(cmd.Context(), purge)
		if err != nil {
			return err
		}
		if purge {
			printStatus("Remote files deleted", "%d", result.Purged)
			if result.Failed > 0 {
				printWarning("%d remote files could not be deleted", result.Failed)
			}
		}
		printSuccess("Document store reset")
		return nil
	},
}

func init() {
	docsListCmd.Flags().Bool("json", false, "print the raw store state as JSON")
	docsResetCmd.Flags().Bool("purge-remote", false, "also delete the recorded files remotely")
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsRmCmd)
	docsCmd.AddCommand(docsResetCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question in a fresh conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.Chat.InitSession(cmd.Context())
		if err != nil {
			return err
		}
		printStep("Waiting for the assistant")
		result, err := a.Chat.SendMessage(cmd.Context(), session.ID, question)
		if err != nil {
			var runErr *app.RunFailedError
			if errors.As(err, &runErr) {
				printStatus("Run", "%s", runErr.RunID)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Reply)
		return nil
	},
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.Chat.InitSession(cmd.Context())
		if err != nil {
			return err
		}
		summary := fmt.Sprintf("%d documents indexed, vector store %s",
			len(a.Documents.ListDocuments()), session.VectorStoreID)

		program := tea.NewProgram(tui.New(cmd.Context(), a.Chat, session.ID, summary), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	},
}
