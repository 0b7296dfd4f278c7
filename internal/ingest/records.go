package ingest

import "huda/internal/domain"

// DuaEntry is one invocation inside a DuaaBatch.
type DuaEntry struct {
	ID              string `json:"id"`
	Number          string `json:"number"`
	Arabic          string `json:"arabic" validate:"required"`
	Transliteration string `json:"transliteration"`
	Translation     string `json:"translation"`
	Source          string `json:"source"`
}

// DuaaBatch groups the duaas recommended for one feeling.
type DuaaBatch struct {
	Feeling   string     `json:"feeling" validate:"required"`
	URL       string     `json:"url" validate:"omitempty,url"`
	DuasCount *int       `json:"duas_count" validate:"omitempty,min=0"`
	Duas      []DuaEntry `json:"duas" validate:"required,min=1,dive"`
}

// Base holds the fields shared by ayah, tafseer and hadith records.
type Base struct {
	ID              string         `json:"id"`
	Text            string         `json:"text" validate:"required"`
	Transliteration string         `json:"transliteration"`
	Translation     string         `json:"translation"`
	Feelings        []string       `json:"feelings"`
	Metadata        map[string]any `json:"metadata"`
}

// AyahRecord is one verse in an ayah batch file.
type AyahRecord struct {
	Base
	SurahNumber int    `json:"surah_number" validate:"required,min=1,max=114"`
	AyahNumber  int    `json:"ayah_number" validate:"required,min=1"`
	JuzNumber   *int   `json:"juz_number" validate:"omitempty,min=1,max=30"`
	AyahType    string `json:"ayah_type"`
}

// TafseerRecord is one commentary entry in a tafseer batch file.
type TafseerRecord struct {
	Base
	ReferencedAyahs []domain.AyahRef `json:"referenced_ayahs" validate:"dive"`
	TafseerType     string           `json:"tafseer_type"`
}

// HadithRecord is one tradition in a hadith batch file.
type HadithRecord struct {
	Base
	HadithNumber     string `json:"hadith_number"`
	SourceCollection string `json:"source_collection"`
	Explanation      string `json:"explanation"`
}

func (r AyahRecord) document() domain.Document {
	return r.Base.apply(domain.NewAyah(r.ID, r.Text, nil, domain.AyahFields{
		SurahNumber: r.SurahNumber,
		AyahNumber:  r.AyahNumber,
		JuzNumber:   r.JuzNumber,
		AyahType:    r.AyahType,
	}))
}

func (r TafseerRecord) document() domain.Document {
	return r.Base.apply(domain.NewTafseer(r.ID, r.Text, nil, domain.TafseerFields{
		ReferencedAyahs: r.ReferencedAyahs,
		TafseerType:     r.TafseerType,
	}))
}

func (r HadithRecord) document() domain.Document {
	return r.Base.apply(domain.NewHadith(r.ID, r.Text, nil, domain.HadithFields{
		HadithNumber:     r.HadithNumber,
		SourceCollection: r.SourceCollection,
		Explanation:      r.Explanation,
	}))
}

func (c Base) apply(doc domain.Document) domain.Document {
	doc.Transliteration = c.Transliteration
	doc.Translation = c.Translation
	doc.Feelings = c.Feelings
	doc.ExtraMetadata = c.Metadata
	return doc
}

func (b DuaaBatch) document(d DuaEntry) domain.Document {
	doc := domain.NewDuaa(d.ID, d.Arabic, nil, domain.DuaaFields{
		Feeling:   b.Feeling,
		URL:       b.URL,
		DuaNumber: d.Number,
		Source:    d.Source,
		DuasCount: b.DuasCount,
	})
	doc.Transliteration = d.Transliteration
	doc.Translation = d.Translation
	return doc
}
