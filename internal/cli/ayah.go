package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"huda/internal/domain"
	"huda/internal/ingest"
	"huda/internal/quran"
)

var (
	ayahIngest  bool
	ayahReciter int
)

var ayahCmd = &cobra.Command{
	Use:   "ayah",
	Short: "Look up a verse on the public Quran APIs",
}

var ayahGetCmd = &cobra.Command{
	Use:   "get SURAH AYAH",
	Short: "Fetch a verse in Arabic with its English translation",
	Long: `Fetches the verse from the configured text API in the Arabic and English
editions. With --ingest the verse is also stored in the ayahs collection
under the id SURAH:AYAH, replacing any earlier copy.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		surah, ayah, err := parseVerse(args)
		if err != nil {
			return err
		}
		verse, err := current.quran.FetchAyah(cmd.Context(), surah, ayah)
		if err != nil {
			return err
		}
		if !ayahIngest {
			return printJSON(cmd, verse)
		}
		ids, err := current.ingestor.IngestAyah(cmd.Context(), ayahRecord(verse))
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"ayah": verse, "inserted_ids": ids})
	},
}

var ayahAudioCmd = &cobra.Command{
	Use:   "audio SURAH AYAH",
	Short: "Print the recitation URLs of a verse",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		surah, ayah, err := parseVerse(args)
		if err != nil {
			return err
		}
		audio, err := current.quran.FetchAudio(cmd.Context(), surah, ayah, ayahReciter)
		if err != nil {
			return err
		}
		return printJSON(cmd, audio)
	},
}

func parseVerse(args []string) (int, int, error) {
	surah, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, domain.Validationf("surah must be a number: %q", args[0])
	}
	ayah, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, domain.Validationf("ayah must be a number: %q", args[1])
	}
	return surah, ayah, nil
}

func ayahRecord(v quran.Ayah) ingest.AyahRecord {
	return ingest.AyahRecord{
		Base: ingest.Base{
			ID:          v.Ref().String(),
			Text:        v.TextAr,
			Translation: v.TextEn,
			Metadata: map[string]any{
				"surah_name_ar": v.SurahNameAr,
				"surah_name_en": v.SurahNameEn,
			},
		},
		SurahNumber: v.SurahNumber,
		AyahNumber:  v.AyahNumber,
	}
}

func init() {
	ayahGetCmd.Flags().BoolVar(&ayahIngest, "ingest", false, "store the verse in the ayahs collection")
	ayahAudioCmd.Flags().IntVar(&ayahReciter, "reciter", 1, "reciter id")

	ayahCmd.AddCommand(ayahGetCmd, ayahAudioCmd)
	rootCmd.AddCommand(ayahCmd)
}
