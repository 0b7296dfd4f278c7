package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"huda/internal/domain"
)

var (
	initRecreate   bool
	countFilter    string
	refSurah       int
	refAyah        int
	refCollections []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the ayahs, tafseers and hadiths collections",
	Long: `Ensures the well-known collections exist with the configured vector size
and distance. With --recreate every collection is dropped and rebuilt empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := current.store.Initialize(cmd.Context(), initRecreate); err != nil {
			return fmt.Errorf("initialize failed: %w", err)
		}
		cmd.Println("Collections ready.")
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count COLLECTION",
	Short: "Count points in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := parseFilter(countFilter)
		if err != nil {
			return err
		}
		n, err := current.store.Count(cmd.Context(), args[0], f)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"collection": args[0], "count": n})
	},
}

var getCmd = &cobra.Command{
	Use:   "get COLLECTION ID",
	Short: "Print one stored point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := current.store.Get(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete COLLECTION ID",
	Short: "Delete a document and all its chunks",
	Long: `Removes every point whose parent_id is ID. When none carries it, ID is
deleted as a single point id (for example one chunk such as t1:2).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := current.store.DeleteDocument(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if n == 0 {
			if err := current.store.DeleteByID(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
		}
		cmd.Printf("Deleted %s from %s.\n", args[1], args[0])
		return nil
	},
}

var deleteRefCmd = &cobra.Command{
	Use:   "delete-ref",
	Short: "Delete every point that references an ayah",
	Long: `Removes the points whose referenced_ayahs contain the given surah and ayah
pair. Without --collection only the tafseers collection is searched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ref := domain.AyahRef{SurahNumber: refSurah, AyahNumber: refAyah}
		n, err := current.store.DeleteByReference(cmd.Context(), ref, refCollections...)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"reference": ref.String(), "deleted": n})
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop COLLECTION",
	Short: "Delete a collection and all its points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.store.DeleteCollection(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Dropped %s.\n", args[0])
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initRecreate, "recreate", false, "drop and rebuild the collections")
	countCmd.Flags().StringVar(&countFilter, "filter", "", "metadata filter as JSON")
	deleteRefCmd.Flags().IntVar(&refSurah, "surah", 0, "surah number")
	deleteRefCmd.Flags().IntVar(&refAyah, "ayah", 0, "ayah number")
	deleteRefCmd.Flags().StringSliceVar(&refCollections, "collection", nil, "collections to search")
	_ = deleteRefCmd.MarkFlagRequired("surah")
	_ = deleteRefCmd.MarkFlagRequired("ayah")

	rootCmd.AddCommand(initCmd, countCmd, getCmd, deleteCmd, deleteRefCmd, dropCmd)
}
